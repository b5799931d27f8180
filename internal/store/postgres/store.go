package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"crosslister/internal/domain"
	"crosslister/internal/security/secretbox"
	"crosslister/internal/store"
)

// Store keeps token records, the category snapshot, and listing results
// in postgres. Used when STORE_MODE=postgres; the file store remains the
// default for single-machine runs. With a secretbox configured, token
// values are encrypted at rest.
type Store struct {
	db  *sql.DB
	box *secretbox.Box
}

func NewStore(databaseURL string, box *secretbox.Box) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db, box: box}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`create table if not exists token_records (
			account_id int primary key,
			access_token text not null,
			refresh_token text not null,
			access_expiry timestamptz not null,
			saved_at timestamptz not null,
			encrypted boolean not null default false
		)`,
		`create table if not exists app_state (
			key text primary key,
			value_json jsonb not null,
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists listing_results (
			id uuid primary key,
			run_id text not null,
			sku text not null,
			status text not null,
			stage text not null default '',
			error text not null default '',
			category_id text not null default '',
			category_name text not null default '',
			offer_id text not null default '',
			listing_id text not null default '',
			elapsed_seconds double precision not null default 0,
			created_at timestamptz not null
		)`,
		`create index if not exists listing_results_run_idx on listing_results (run_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadToken(accountID int) (domain.TokenRecord, error) {
	var rec domain.TokenRecord
	var encrypted bool
	err := s.db.QueryRow(
		`select account_id, access_token, refresh_token, access_expiry, saved_at, encrypted
		 from token_records where account_id = $1`,
		accountID,
	).Scan(&rec.AccountID, &rec.AccessToken, &rec.RefreshToken, &rec.AccessExpiry, &rec.SavedAt, &encrypted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TokenRecord{}, store.ErrNotFound
		}
		return domain.TokenRecord{}, err
	}
	if encrypted {
		if s.box == nil {
			return domain.TokenRecord{}, fmt.Errorf("tokens for account %d are encrypted and no key is configured", accountID)
		}
		if rec.AccessToken, err = s.box.Decrypt(rec.AccessToken); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("decrypt access token: %w", err)
		}
		if rec.RefreshToken, err = s.box.Decrypt(rec.RefreshToken); err != nil {
			return domain.TokenRecord{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return rec, nil
}

func (s *Store) SaveToken(rec domain.TokenRecord) error {
	access, refresh := rec.AccessToken, rec.RefreshToken
	encrypted := false
	if s.box != nil {
		var err error
		if access, err = s.box.Encrypt(access); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
		if refresh, err = s.box.Encrypt(refresh); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		encrypted = true
	}
	_, err := s.db.Exec(
		`insert into token_records(account_id, access_token, refresh_token, access_expiry, saved_at, encrypted)
		 values ($1, $2, $3, $4, $5, $6)
		 on conflict (account_id) do update
		 set access_token = excluded.access_token,
		     refresh_token = excluded.refresh_token,
		     access_expiry = excluded.access_expiry,
		     saved_at = excluded.saved_at,
		     encrypted = excluded.encrypted`,
		rec.AccountID, access, refresh, rec.AccessExpiry, rec.SavedAt, encrypted,
	)
	return err
}

func (s *Store) LoadSnapshot() (*domain.CategorySnapshot, error) {
	var raw []byte
	err := s.db.QueryRow(
		`select value_json from app_state where key = 'category_snapshot'`,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var snap domain.CategorySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Store) SaveSnapshot(snap *domain.CategorySnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`insert into app_state(key, value_json, updated_at)
		 values ('category_snapshot', $1::jsonb, now())
		 on conflict (key) do update
		 set value_json = excluded.value_json, updated_at = now()`,
		string(raw),
	)
	return err
}

func (s *Store) AppendResult(res domain.ListingResult) error {
	_, err := s.db.Exec(
		`insert into listing_results(
			id, run_id, sku, status, stage, error, category_id, category_name,
			offer_id, listing_id, elapsed_seconds, created_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		res.ID, res.RunID, res.SKU, string(res.Status), res.Stage, res.Error,
		res.CategoryID, res.CategoryName, res.OfferID, res.ListingID,
		res.Elapsed, res.CreatedAt,
	)
	return err
}

func (s *Store) ListResults(runID string) ([]domain.ListingResult, error) {
	rows, err := s.db.Query(
		`select id, run_id, sku, status, stage, error, category_id, category_name,
		        offer_id, listing_id, elapsed_seconds, created_at
		 from listing_results
		 where ($1 = '' or run_id = $1)
		 order by created_at asc`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ListingResult, 0, 32)
	for rows.Next() {
		var res domain.ListingResult
		var status string
		if err := rows.Scan(
			&res.ID, &res.RunID, &res.SKU, &status, &res.Stage, &res.Error,
			&res.CategoryID, &res.CategoryName, &res.OfferID, &res.ListingID,
			&res.Elapsed, &res.CreatedAt,
		); err != nil {
			return nil, err
		}
		res.Status = domain.ResultStatus(status)
		out = append(out, res)
	}
	return out, rows.Err()
}
