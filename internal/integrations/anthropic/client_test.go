package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "claude-3-haiku-20240307" || len(req.Messages) != 1 {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"hello"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "claude-3-haiku-20240307", 5*time.Second)
	out, err := c.Complete(context.Background(), "system", "prompt", 256)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "hello" {
		t.Fatalf("Complete = %q", out)
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad prompt"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", "m", 5*time.Second)
	if _, err := c.Complete(context.Background(), "", "p", 0); err == nil {
		t.Fatalf("expected error")
	}
}

func TestComplete_RequiresKey(t *testing.T) {
	c := NewClient("http://localhost:0", "", "m", time.Second)
	if _, err := c.Complete(context.Background(), "", "p", 0); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prose wrapped", `Here you go: {"a":1} hope that helps`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"nested braces", `{"a":{"b":"}"}}`, `{"a":{"b":"}"}}`, true},
		{"escaped quote", `{"a":"say \"hi\""}`, `{"a":"say \"hi\""}`, true},
		{"no object", `nothing here`, "", false},
		{"unbalanced", `{"a":1`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("ExtractJSON(%q) error: %v", tc.in, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("ExtractJSON(%q) expected error", tc.in)
			}
			if tc.ok && got != tc.want {
				t.Fatalf("ExtractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
