package mls

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redirectQuerier struct {
	rows  []map[string]interface{}
	err   error
	lastQ string
	lastP map[string]interface{}
}

func (q *redirectQuerier) Query(ctx context.Context, sqlText string, params map[string]interface{}) ([]map[string]interface{}, error) {
	q.lastQ = sqlText
	q.lastP = params
	return q.rows, q.err
}

func newRedirectApp(gateway *redirectQuerier) *fiber.App {
	app := fiber.New()
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	NewRedirectHandler(gateway, "https://www.example.com/", logger).RegisterRoutes(app)
	return app
}

func TestRedirect_Found(t *testing.T) {
	gateway := &redirectQuerier{
		rows: []map[string]interface{}{
			{"MLSNUMBER": "MLS-1", "LISTINGPATH": "/homes/los-angeles/mls-1"},
		},
	}
	app := newRedirectApp(gateway)

	req := httptest.NewRequest("GET", "/listing/MLS-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "https://www.example.com/homes/los-angeles/mls-1", resp.Header.Get("Location"))

	// O número MLS vai como parâmetro, nunca no texto SQL
	assert.Contains(t, gateway.lastQ, "@keyValue")
	assert.Equal(t, "MLS-1", gateway.lastP["keyValue"])
}

func TestRedirect_NotFound(t *testing.T) {
	app := newRedirectApp(&redirectQuerier{})

	req := httptest.NewRequest("GET", "/listing/MLS-404", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 404, resp.StatusCode)
}
