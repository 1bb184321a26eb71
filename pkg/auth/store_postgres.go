package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persiste tokens em PostgreSQL via pgxpool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore conecta no PostgreSQL com pool limitado a 10 conexões
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}
	config.MaxConns = 10

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Init cria as tabelas de tokens e os índices de expiração
func (s *PostgresStore) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS oauth_tokens (
			access_token TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_tokens_expires_at ON oauth_tokens (expires_at)`,
		`CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
			refresh_token TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_oauth_refresh_tokens_expires_at ON oauth_refresh_tokens (expires_at)`,
	}
	for _, statement := range statements {
		if _, err := s.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("token store init failed: %w", err)
		}
	}
	return nil
}

// Save persiste um access token
func (s *PostgresStore) Save(ctx context.Context, accessToken, clientID string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth_tokens (access_token, client_id, expires_at) VALUES ($1, $2, $3)`,
		accessToken, clientID, expiresAt)
	return err
}

// Get busca um access token; (nil, nil) quando não existe
func (s *PostgresStore) Get(ctx context.Context, accessToken string) (*TokenRecord, error) {
	record := &TokenRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT client_id, expires_at FROM oauth_tokens WHERE access_token = $1`,
		accessToken).Scan(&record.ClientID, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete remove um access token
func (s *PostgresStore) Delete(ctx context.Context, accessToken string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM oauth_tokens WHERE access_token = $1`, accessToken)
	return err
}

// SaveRefresh persiste um refresh token
func (s *PostgresStore) SaveRefresh(ctx context.Context, refreshToken, clientID string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth_refresh_tokens (refresh_token, client_id, expires_at) VALUES ($1, $2, $3)`,
		refreshToken, clientID, expiresAt)
	return err
}

// GetRefresh busca um refresh token; (nil, nil) quando não existe
func (s *PostgresStore) GetRefresh(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	record := &TokenRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT client_id, expires_at FROM oauth_refresh_tokens WHERE refresh_token = $1`,
		refreshToken).Scan(&record.ClientID, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRefresh remove um refresh token
func (s *PostgresStore) DeleteRefresh(ctx context.Context, refreshToken string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM oauth_refresh_tokens WHERE refresh_token = $1`, refreshToken)
	return err
}

// Cleanup remove os tokens expirados das duas tabelas
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM oauth_tokens WHERE expires_at < NOW()`); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM oauth_refresh_tokens WHERE expires_at < NOW()`)
	return err
}

// Close encerra o pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
