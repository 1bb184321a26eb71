package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newTestService(t *testing.T) (*Service, TokenStore) {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })

	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	service := NewService(DefaultConfig("test-client", "test-secret"), store, logger)
	return service, store
}

func newTokenApp(service *Service) *fiber.App {
	app := fiber.New()
	service.RegisterRoutes(app.Group("/odata"))

	protected := app.Group("/odata/Property", service.Middleware())
	protected.Get("", func(c fiber.Ctx) error {
		return c.JSON(map[string]interface{}{"client_id": c.Locals("client_id")})
	})
	return app
}

func postToken(t *testing.T, app *fiber.App, form url.Values) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("POST", "/odata/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleToken_ClientCredentials(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	status, body := postToken(t, app, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"test-client"},
		"client_secret": {"test-secret"},
	})

	require.Equal(t, 200, status)
	assert.Equal(t, "Bearer", body["token_type"])
	assert.Equal(t, float64(3600), body["expires_in"])

	// Tokens de 256 bits em hexadecimal
	assert.Regexp(t, hexToken, body["access_token"])
	assert.Regexp(t, hexToken, body["refresh_token"])
	assert.NotEqual(t, body["access_token"], body["refresh_token"])
}

func TestHandleToken_InvalidClient(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	status, body := postToken(t, app, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"test-client"},
		"client_secret": {"wrong-secret"},
	})

	assert.Equal(t, 401, status)
	assert.Equal(t, "invalid_client", body["error"])
}

func TestHandleToken_UnsupportedGrantType(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	status, body := postToken(t, app, url.Values{
		"grant_type": {"password"},
		"username":   {"u"},
		"password":   {"p"},
	})

	assert.Equal(t, 400, status)
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestHandleToken_RefreshRequiresToken(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	status, body := postToken(t, app, url.Values{"grant_type": {"refresh_token"}})

	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestHandleToken_RefreshUnknownToken(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	status, body := postToken(t, app, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"deadbeef"},
	})

	assert.Equal(t, 401, status)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestHandleToken_RefreshIssuesNewAccessToken(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	_, issued := postToken(t, app, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"test-client"},
		"client_secret": {"test-secret"},
	})

	status, refreshed := postToken(t, app, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {issued["refresh_token"].(string)},
	})

	require.Equal(t, 200, status)
	assert.Regexp(t, hexToken, refreshed["access_token"])
	assert.NotEqual(t, issued["access_token"], refreshed["access_token"])

	// O refresh token original continua válido e é devolvido
	assert.Equal(t, issued["refresh_token"], refreshed["refresh_token"])
}

func TestHandleToken_RefreshExpiredToken(t *testing.T) {
	service, store := newTestService(t)
	app := newTokenApp(service)

	require.NoError(t, store.SaveRefresh(context.Background(), "expiredtoken", "test-client", time.Now().Add(-time.Minute)))

	status, body := postToken(t, app, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {"expiredtoken"},
	})

	assert.Equal(t, 401, status)
	assert.Equal(t, "invalid_grant", body["error"])

	// Token expirado foi removido do store
	record, err := store.GetRefresh(context.Background(), "expiredtoken")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestMiddleware_MissingHeader(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	req := httptest.NewRequest("GET", "/odata/Property", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 401, resp.StatusCode)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "Unauthorized", envelope.Error.Code)
}

func TestMiddleware_NonBearerScheme(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	req := httptest.NewRequest("GET", "/odata/Property", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 401, resp.StatusCode)
}

func TestMiddleware_UnknownToken(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	req := httptest.NewRequest("GET", "/odata/Property", nil)
	req.Header.Set("Authorization", "Bearer "+generateToken())
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 401, resp.StatusCode)
}

func TestMiddleware_ValidTokenAttachesClientID(t *testing.T) {
	service, _ := newTestService(t)
	app := newTokenApp(service)

	_, issued := postToken(t, app, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"test-client"},
		"client_secret": {"test-secret"},
	})

	req := httptest.NewRequest("GET", "/odata/Property", nil)
	req.Header.Set("Authorization", "Bearer "+issued["access_token"].(string))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, 200, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "test-client", body["client_id"])
}

func TestMiddleware_ExpiredTokenDeletedLazily(t *testing.T) {
	service, store := newTestService(t)
	app := newTokenApp(service)

	require.NoError(t, store.Save(context.Background(), "expiredaccess", "test-client", time.Now().Add(-time.Minute)))

	req := httptest.NewRequest("GET", "/odata/Property", nil)
	req.Header.Set("Authorization", "Bearer expiredaccess")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 401, resp.StatusCode)

	record, err := store.Get(context.Background(), "expiredaccess")
	require.NoError(t, err)
	assert.Nil(t, record)
}
