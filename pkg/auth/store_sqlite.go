package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persiste tokens em SQLite embutido, para desenvolvimento e
// testes sem PostgreSQL
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (ou cria) o arquivo do banco. Use ":memory:" nos testes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// O driver não lida bem com escrita concorrente
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Init cria as tabelas de tokens e os índices de expiração. Expiração é
// guardada como unix milissegundos.
func (s *SQLiteStore) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS oauth_tokens (
			access_token TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch() * 1000)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_tokens_expires_at ON oauth_tokens (expires_at)`,
		`CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
			refresh_token TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (unixepoch() * 1000)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_refresh_tokens_expires_at ON oauth_refresh_tokens (expires_at)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("token store init failed: %w", err)
		}
	}
	return nil
}

// Save persiste um access token
func (s *SQLiteStore) Save(ctx context.Context, accessToken, clientID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (access_token, client_id, expires_at) VALUES (?, ?, ?)`,
		accessToken, clientID, expiresAt.UnixMilli())
	return err
}

// Get busca um access token; (nil, nil) quando não existe
func (s *SQLiteStore) Get(ctx context.Context, accessToken string) (*TokenRecord, error) {
	record := &TokenRecord{}
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT client_id, expires_at FROM oauth_tokens WHERE access_token = ?`,
		accessToken).Scan(&record.ClientID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record.ExpiresAt = time.UnixMilli(expiresAt)
	return record, nil
}

// Delete remove um access token
func (s *SQLiteStore) Delete(ctx context.Context, accessToken string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE access_token = ?`, accessToken)
	return err
}

// SaveRefresh persiste um refresh token
func (s *SQLiteStore) SaveRefresh(ctx context.Context, refreshToken, clientID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_refresh_tokens (refresh_token, client_id, expires_at) VALUES (?, ?, ?)`,
		refreshToken, clientID, expiresAt.UnixMilli())
	return err
}

// GetRefresh busca um refresh token; (nil, nil) quando não existe
func (s *SQLiteStore) GetRefresh(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	record := &TokenRecord{}
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT client_id, expires_at FROM oauth_refresh_tokens WHERE refresh_token = ?`,
		refreshToken).Scan(&record.ClientID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record.ExpiresAt = time.UnixMilli(expiresAt)
	return record, nil
}

// DeleteRefresh remove um refresh token
func (s *SQLiteStore) DeleteRefresh(ctx context.Context, refreshToken string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE refresh_token = ?`, refreshToken)
	return err
}

// Cleanup remove os tokens expirados das duas tabelas
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	now := time.Now().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE expires_at < ?`, now); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE expires_at < ?`, now)
	return err
}

// Close encerra o banco
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
