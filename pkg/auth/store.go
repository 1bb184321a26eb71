package auth

import (
	"context"
	"time"
)

// TokenRecord é o registro persistido de um token emitido
type TokenRecord struct {
	ClientID  string
	ExpiresAt time.Time
}

// TokenStore é o contrato de persistência dos tokens OAuth2. Get e GetRefresh
// retornam (nil, nil) quando o token não existe.
type TokenStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, accessToken, clientID string, expiresAt time.Time) error
	Get(ctx context.Context, accessToken string) (*TokenRecord, error)
	Delete(ctx context.Context, accessToken string) error
	SaveRefresh(ctx context.Context, refreshToken, clientID string, expiresAt time.Time) error
	GetRefresh(ctx context.Context, refreshToken string) (*TokenRecord, error)
	DeleteRefresh(ctx context.Context, refreshToken string) error
	Cleanup(ctx context.Context) error
	Close() error
}
