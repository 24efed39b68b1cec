package middleware

import (
	"strings"

	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth gates a route behind SECRET_KEY when auth is enabled for this
// deployment (spec §6.3); when ADMIN_EMAIL/ADMIN_PASSWORD aren't both set
// it is a no-op, matching the single-operator default deployment.
func (m *Middleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.authEnabled {
			return c.Next()
		}

		log := logger.New("middleware").TraceFromContext(c.Context()).Function("RequireAuth")

		authHeader := c.Get("Authorization")
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") || tokenParts[1] == "" {
			log.Info("missing or malformed authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "unauthorized",
					"message": "authorization header required",
				},
			})
		}

		if tokenParts[1] != m.Config.SecretKey {
			log.Info("invalid shared secret presented")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "unauthorized",
					"message": "invalid credentials",
				},
			})
		}

		return c.Next()
	}
}
