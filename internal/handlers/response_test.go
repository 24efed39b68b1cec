package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamedjinn/sync/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:  fiber.StatusBadRequest,
		apperr.KindAuth:        fiber.StatusUnauthorized,
		apperr.KindNotFound:    fiber.StatusNotFound,
		apperr.KindConflict:    fiber.StatusConflict,
		apperr.KindRateLimited: fiber.StatusTooManyRequests,
		apperr.KindExternal:    fiber.StatusBadGateway,
		apperr.KindInternal:    fiber.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, statusForKind(kind))
	}
}

func appWithHandler(err error) *fiber.App {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return respondError(c, err)
	})
	return app
}

func TestRespondError_AppErrorShape(t *testing.T) {
	app := appWithHandler(apperr.NotFound("library_not_found", "library not found"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRespondError_UnclassifiedBecomesInternal(t *testing.T) {
	app := appWithHandler(errors.New("boom"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
