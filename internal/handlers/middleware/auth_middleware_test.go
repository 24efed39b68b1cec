package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(secretKey string) config.Config {
	return config.Config{SecretKey: secretKey}
}

func newTestApp(m Middleware) *fiber.App {
	app := fiber.New()
	app.Use(m.RequireAuth())
	app.Get("/protected", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRequireAuth_DisabledPassesThrough(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: false}
	app := newTestApp(m)

	resp := doRequest(t, app, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuth_EnabledRejectsMissingHeader(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: true, Config: testConfig("s3cr3t")}
	app := newTestApp(m)

	resp := doRequest(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_EnabledRejectsMalformedHeader(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: true, Config: testConfig("s3cr3t")}
	app := newTestApp(m)

	resp := doRequest(t, app, "s3cr3t")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_EnabledRejectsWrongSecret(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: true, Config: testConfig("s3cr3t")}
	app := newTestApp(m)

	resp := doRequest(t, app, "Bearer wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_EnabledAcceptsCorrectSecret(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: true, Config: testConfig("s3cr3t")}
	app := newTestApp(m)

	resp := doRequest(t, app, "Bearer s3cr3t")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuth_EnabledAcceptsCaseInsensitiveScheme(t *testing.T) {
	m := Middleware{log: logger.New("middleware"), authEnabled: true, Config: testConfig("s3cr3t")}
	app := newTestApp(m)

	resp := doRequest(t, app, "bearer s3cr3t")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
