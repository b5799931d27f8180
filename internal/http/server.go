package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crosslister/internal/config"
)

// Scopes requested during user consent. Inventory and account cover
// listing; fulfillment covers the order export.
var consentScopes = []string{
	"https://api.ebay.com/oauth/api_scope",
	"https://api.ebay.com/oauth/api_scope/sell.inventory",
	"https://api.ebay.com/oauth/api_scope/sell.account",
	"https://api.ebay.com/oauth/api_scope/sell.fulfillment",
}

// ConsentExchanger persists a consent code as a token pair for one
// account. Implemented by the auth manager.
type ConsentExchanger interface {
	SaveAuthorization(ctx context.Context, accountID int, code, redirectURI string) error
}

// Server hosts the one-time OAuth consent flow: a start endpoint that
// redirects to the marketplace consent page and the callback that
// exchanges the returned code.
type Server struct {
	cfg  config.Config
	auth ConsentExchanger
}

func NewServer(cfg config.Config, auth ConsentExchanger) *Server {
	return &Server{cfg: cfg, auth: auth}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/auth/start", s.handleStart)
	r.Get("/auth/callback", s.handleCallback)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ConsentURL builds the marketplace consent page URL for one account.
func (s *Server) ConsentURL(accountID int) string {
	q := url.Values{}
	q.Set("client_id", s.cfg.EbayAppID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", s.cfg.EbayRedirectURI)
	q.Set("state", strconv.Itoa(accountID))
	scope := ""
	for i, sc := range consentScopes {
		if i > 0 {
			scope += " "
		}
		scope += sc
	}
	q.Set("scope", scope)
	return s.cfg.ConsentURL() + "?" + q.Encode()
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	accountID := s.cfg.ActiveAccount
	if v := r.URL.Query().Get("account"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid account", http.StatusBadRequest)
			return
		}
		accountID = n
	}
	if _, err := s.cfg.Account(accountID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, s.ConsentURL(accountID), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	accountID := s.cfg.ActiveAccount
	if state := r.URL.Query().Get("state"); state != "" {
		if n, err := strconv.Atoi(state); err == nil {
			accountID = n
		}
	}
	if err := s.auth.SaveAuthorization(r.Context(), accountID, code, s.cfg.EbayRedirectURI); err != nil {
		log.Printf("authorize: account %d: %v", accountID, err)
		http.Error(w, "authorization failed", http.StatusBadGateway)
		return
	}
	log.Printf("authorize: account %d connected", accountID)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h2>Account %d authorized</h2><p>You can close this window.</p></body></html>", accountID)
}
