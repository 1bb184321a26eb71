package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/fitlcarlos/go-reso/pkg/odata"
)

// Config representa as configurações do serviço de tokens OAuth2
type Config struct {
	ClientID        string
	ClientSecret    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig retorna os TTLs padrão do serviço de tokens
func DefaultConfig(clientID, clientSecret string) *Config {
	return &Config{
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

// tokenResponse é o corpo de resposta do endpoint de token (RFC 6749)
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// oauthError é o envelope de erro do endpoint de token (RFC 6749)
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Service emite e valida tokens Bearer com os grants client_credentials e
// refresh_token. Implementa o contrato de autenticação do servidor OData.
type Service struct {
	config *Config
	store  TokenStore
	logger *log.Logger
	stop   chan struct{}
}

// NewService cria o serviço de tokens sobre um store já inicializado
func NewService(config *Config, store TokenStore, logger *log.Logger) *Service {
	if config.AccessTokenTTL <= 0 {
		config.AccessTokenTTL = time.Hour
	}
	if config.RefreshTokenTTL <= 0 {
		config.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	return &Service{
		config: config,
		store:  store,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// RegisterRoutes monta o endpoint de token no grupo do serviço
func (s *Service) RegisterRoutes(router fiber.Router) {
	router.Post("/token", s.HandleToken)
}

// StartCleanup dispara o varredor de tokens expirados em background
func (s *Service) StartCleanup() {
	go func() {
		ticker := time.NewTicker(s.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.store.Cleanup(ctx); err != nil {
					s.logger.Printf("❌ Limpeza de tokens falhou: %v", err)
				}
				cancel()
			}
		}
	}()
}

// StopCleanup encerra o varredor
func (s *Service) StopCleanup() {
	close(s.stop)
}

// HandleToken lida com POST /token nos grants client_credentials e
// refresh_token
func (s *Service) HandleToken(c fiber.Ctx) error {
	grantType := c.FormValue("grant_type")

	switch grantType {
	case "client_credentials":
		return s.handleClientCredentials(c)
	case "refresh_token":
		return s.handleRefreshToken(c)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(oauthError{
			Error:            "unsupported_grant_type",
			ErrorDescription: "grant_type must be client_credentials or refresh_token",
		})
	}
}

// handleClientCredentials valida as credenciais do cliente e emite o par de
// tokens
func (s *Service) handleClientCredentials(c fiber.Ctx) error {
	clientID := c.FormValue("client_id")
	clientSecret := c.FormValue("client_secret")

	if clientID != s.config.ClientID || clientSecret != s.config.ClientSecret {
		return c.Status(fiber.StatusUnauthorized).JSON(oauthError{
			Error:            "invalid_client",
			ErrorDescription: "client authentication failed",
		})
	}

	accessToken := generateToken()
	refreshToken := generateToken()
	now := time.Now()

	if err := s.store.Save(c.Context(), accessToken, clientID, now.Add(s.config.AccessTokenTTL)); err != nil {
		s.logger.Printf("❌ Persistência de access token falhou: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(oauthError{Error: "server_error"})
	}
	if err := s.store.SaveRefresh(c.Context(), refreshToken, clientID, now.Add(s.config.RefreshTokenTTL)); err != nil {
		s.logger.Printf("❌ Persistência de refresh token falhou: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(oauthError{Error: "server_error"})
	}

	return c.JSON(tokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
	})
}

// handleRefreshToken troca um refresh token válido por um novo access token.
// O refresh token permanece o mesmo.
func (s *Service) handleRefreshToken(c fiber.Ctx) error {
	refreshToken := c.FormValue("refresh_token")
	if refreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(oauthError{
			Error:            "invalid_request",
			ErrorDescription: "refresh_token is required",
		})
	}

	record, err := s.store.GetRefresh(c.Context(), refreshToken)
	if err != nil {
		s.logger.Printf("❌ Lookup de refresh token falhou: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(oauthError{Error: "server_error"})
	}
	if record == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(oauthError{
			Error:            "invalid_grant",
			ErrorDescription: "refresh token is invalid",
		})
	}
	if record.ExpiresAt.Before(time.Now()) {
		_ = s.store.DeleteRefresh(c.Context(), refreshToken)
		return c.Status(fiber.StatusUnauthorized).JSON(oauthError{
			Error:            "invalid_grant",
			ErrorDescription: "refresh token has expired",
		})
	}

	accessToken := generateToken()
	if err := s.store.Save(c.Context(), accessToken, record.ClientID, time.Now().Add(s.config.AccessTokenTTL)); err != nil {
		s.logger.Printf("❌ Persistência de access token falhou: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(oauthError{Error: "server_error"})
	}

	return c.JSON(tokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		RefreshToken: refreshToken,
	})
}

// Middleware retorna o middleware fiber que valida o Bearer das rotas de
// dados e anexa o client_id ao contexto da requisição
func (s *Service) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := extractBearer(c.Get("Authorization"))
		if token == "" {
			return unauthorized(c, "Missing or invalid Authorization header")
		}

		record, err := s.store.Get(c.Context(), token)
		if err != nil {
			s.logger.Printf("❌ Lookup de access token falhou: %v", err)
			return unauthorized(c, "Token validation failed")
		}
		if record == nil {
			return unauthorized(c, "Invalid access token")
		}
		if record.ExpiresAt.Before(time.Now()) {
			// Expirado: remove preguiçosamente e rejeita
			_ = s.store.Delete(c.Context(), token)
			return unauthorized(c, "Access token has expired")
		}

		c.Locals("client_id", record.ClientID)
		return c.Next()
	}
}

// extractBearer extrai o token de um header "Bearer <token>"
func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// unauthorized emite o envelope 401 padrão da API de dados
func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(odata.ODataErrorResponse{
		Error: odata.ODataError{Code: "Unauthorized", Message: message},
	})
}

// generateToken gera 256 bits aleatórios em hexadecimal (64 caracteres)
func generateToken() string {
	buffer := make([]byte, 32)
	if _, err := rand.Read(buffer); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buffer)
}
