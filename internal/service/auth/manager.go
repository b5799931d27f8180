package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"crosslister/internal/domain"
	"crosslister/internal/integrations/ebay"
	"crosslister/internal/store"
)

// Manager owns the per-account OAuth credential lifecycle: it hands out
// valid access tokens, refreshing behind a per-account lock so that
// concurrent workers trigger at most one refresh, and persists every
// rotation before exposing the new token.
type Manager struct {
	store  store.Store
	client *ebay.Client
	skew   time.Duration

	mu       sync.Mutex
	accounts map[int]*accountState
}

type accountState struct {
	mu     sync.Mutex
	rec    domain.TokenRecord
	loaded bool
}

func NewManager(st store.Store, client *ebay.Client, skew time.Duration) *Manager {
	return &Manager{
		store:    st,
		client:   client,
		skew:     skew,
		accounts: make(map[int]*accountState),
	}
}

func (m *Manager) state(accountID int) *accountState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.accounts[accountID]
	if !ok {
		st = &accountState{}
		m.accounts[accountID] = st
	}
	return st
}

// AccessToken returns a token valid for at least the configured skew,
// refreshing and persisting first when the stored one is near expiry.
func (m *Manager) AccessToken(ctx context.Context, accountID int) (string, error) {
	st := m.state(accountID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.loaded {
		rec, err := m.store.LoadToken(accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", &domain.AuthError{
					AccountID: accountID,
					Reason:    "no stored tokens, run the authorize flow first",
				}
			}
			return "", &domain.AuthError{AccountID: accountID, Reason: "load tokens", Err: err}
		}
		st.rec = rec
		st.loaded = true
	}

	if st.rec.AccessToken != "" && time.Until(st.rec.AccessExpiry) > m.skew {
		return st.rec.AccessToken, nil
	}

	if st.rec.RefreshToken == "" {
		return "", &domain.AuthError{AccountID: accountID, Reason: "no refresh token on record"}
	}

	tok, err := m.client.RefreshUserToken(ctx, st.rec.RefreshToken)
	if err != nil {
		var apiErr *ebay.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return "", &domain.AuthError{
				AccountID: accountID,
				Reason:    "refresh token rejected, re-run the authorize flow",
				Err:       err,
			}
		}
		return "", &domain.AuthError{AccountID: accountID, Reason: "token refresh", Err: err}
	}

	now := time.Now()
	st.rec.AccessToken = tok.AccessToken
	st.rec.AccessExpiry = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.RefreshToken != "" {
		st.rec.RefreshToken = tok.RefreshToken
	}
	st.rec.SavedAt = now
	st.rec.AccountID = accountID

	if err := m.store.SaveToken(st.rec); err != nil {
		log.Printf("auth: persist tokens for account %d: %v", accountID, err)
	}
	return st.rec.AccessToken, nil
}

// SaveAuthorization exchanges a consent code for the initial token pair
// and persists it. Used by the authorize flow only.
func (m *Manager) SaveAuthorization(ctx context.Context, accountID int, code, redirectURI string) error {
	tok, err := m.client.ExchangeAuthorizationCode(ctx, code, redirectURI)
	if err != nil {
		return &domain.AuthError{AccountID: accountID, Reason: "code exchange", Err: err}
	}
	if tok.RefreshToken == "" {
		return &domain.AuthError{AccountID: accountID, Reason: "code exchange returned no refresh token"}
	}

	now := time.Now()
	rec := domain.TokenRecord{
		AccountID:    accountID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		AccessExpiry: now.Add(time.Duration(tok.ExpiresIn) * time.Second),
		SavedAt:      now,
	}

	st := m.state(accountID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := m.store.SaveToken(rec); err != nil {
		return fmt.Errorf("persist tokens for account %d: %w", accountID, err)
	}
	st.rec = rec
	st.loaded = true
	return nil
}

// UserSource binds the manager to one account as an ebay.TokenSource.
func (m *Manager) UserSource(accountID int) ebay.TokenSource {
	return userSource{m: m, accountID: accountID}
}

type userSource struct {
	m         *Manager
	accountID int
}

func (s userSource) AccessToken(ctx context.Context) (string, error) {
	return s.m.AccessToken(ctx, s.accountID)
}
