package file

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crosslister/internal/domain"
	"crosslister/internal/security/secretbox"
	"crosslister/internal/store"
)

const (
	snapshotFile = "ebay_categories_cache.json"
	resultsFile  = "listing_results.jsonl"
)

// Store persists everything as JSON files under a state directory:
// one token file per account, one snapshot file, and an append-only
// results log. Writes go through a temp file plus rename so a reader
// never observes a half-written record. With a secretbox configured,
// token values are encrypted at rest.
type Store struct {
	dir string
	box *secretbox.Box
	mu  sync.Mutex
}

func NewStore(dir string, box *secretbox.Box) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir, box: box}, nil
}

func (s *Store) tokenPath(accountID int) string {
	return filepath.Join(s.dir, fmt.Sprintf("ebay_tokens_account%d.json", accountID))
}

// tokenFile is the on-disk token layout. Encrypted marks records whose
// token values went through the secretbox.
type tokenFile struct {
	AccountID    int       `json:"account_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExpiry time.Time `json:"access_expiry"`
	SavedAt      time.Time `json:"saved_at"`
	Encrypted    bool      `json:"encrypted,omitempty"`
}

func (s *Store) LoadToken(accountID int) (domain.TokenRecord, error) {
	raw, err := os.ReadFile(s.tokenPath(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TokenRecord{}, store.ErrNotFound
		}
		return domain.TokenRecord{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("decode token file: %w", err)
	}
	if tf.Encrypted {
		if s.box == nil {
			return domain.TokenRecord{}, fmt.Errorf("token file for account %d is encrypted and no key is configured", accountID)
		}
		if tf.AccessToken, err = s.box.Decrypt(tf.AccessToken); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("decrypt access token: %w", err)
		}
		if tf.RefreshToken, err = s.box.Decrypt(tf.RefreshToken); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return domain.TokenRecord{
		AccountID:    accountID,
		AccessToken:  tf.AccessToken,
		RefreshToken: tf.RefreshToken,
		AccessExpiry: tf.AccessExpiry,
		SavedAt:      tf.SavedAt,
	}, nil
}

func (s *Store) SaveToken(rec domain.TokenRecord) error {
	tf := tokenFile{
		AccountID:    rec.AccountID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		AccessExpiry: rec.AccessExpiry,
		SavedAt:      rec.SavedAt,
	}
	if s.box != nil {
		var err error
		if tf.AccessToken, err = s.box.Encrypt(tf.AccessToken); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
		if tf.RefreshToken, err = s.box.Encrypt(tf.RefreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		tf.Encrypted = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.tokenPath(rec.AccountID), tf)
}

func (s *Store) LoadSnapshot() (*domain.CategorySnapshot, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, snapshotFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var snap domain.CategorySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode category cache: %w", err)
	}
	return &snap, nil
}

func (s *Store) SaveSnapshot(snap *domain.CategorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(filepath.Join(s.dir, snapshotFile), snap)
}

func (s *Store) AppendResult(res domain.ListingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, resultsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = f.Write(append(raw, '\n'))
	return err
}

func (s *Store) ListResults(runID string) ([]domain.ListingResult, error) {
	f, err := os.Open(filepath.Join(s.dir, resultsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.ListingResult{}, nil
		}
		return nil, err
	}
	defer f.Close()

	out := make([]domain.ListingResult, 0, 32)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var res domain.ListingResult
		if err := json.Unmarshal(scanner.Bytes(), &res); err != nil {
			continue
		}
		if runID == "" || res.RunID == runID {
			out = append(out, res)
		}
	}
	return out, scanner.Err()
}

func writeJSONAtomic(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
