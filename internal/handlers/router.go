package handlers

import (
	"github.com/gamedjinn/sync/internal/app"
	"github.com/gamedjinn/sync/internal/handlers/middleware"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	WebSocketHandler(router, app.Websocket)

	api := router.Group("/api")
	HealthHandler(api, app.Config)

	NewPlatformsHandler(*app, api).Register()
	NewLibrariesHandler(*app, api).Register()
	NewSyncHandler(*app, api).Register()
	NewGamesHandler(*app, api).Register()

	return nil
}
