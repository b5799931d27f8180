package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestRoundTrip(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sealed, err := box.Encrypt("v1.2-refresh-token")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if sealed == "v1.2-refresh-token" {
		t.Fatalf("ciphertext equals plaintext")
	}
	plain, err := box.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if plain != "v1.2-refresh-token" {
		t.Fatalf("Decrypt = %q", plain)
	}
}

func TestNew_RejectsBadKeys(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := New("not base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	if _, err := New(short); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestDecrypt_RejectsTamperedCiphertext(t *testing.T) {
	box, err := New(testKey())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	sealed, err := box.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)
	if _, err := box.Decrypt(tampered); err == nil {
		t.Fatalf("expected error for tampered ciphertext")
	}
	if _, err := box.Decrypt(strings.Repeat("A", 4)); err == nil {
		t.Fatalf("expected error for truncated ciphertext")
	}
}
