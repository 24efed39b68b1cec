package handlers

import (
	"github.com/gamedjinn/sync/internal/app"
	platformsController "github.com/gamedjinn/sync/internal/controllers/platforms"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type PlatformsHandler struct {
	Handler
	controller platformsController.PlatformsControllerInterface
}

func NewPlatformsHandler(app app.App, router fiber.Router) *PlatformsHandler {
	return &PlatformsHandler{
		controller: app.Controllers.Platforms,
		Handler: Handler{
			log:        logger.New("handlers").File("platforms_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PlatformsHandler) Register() {
	platforms := h.router.Group("/platforms", h.middleware.RequireAuth())
	platforms.Get("/", h.List)
}

func (h *PlatformsHandler) List(c *fiber.Ctx) error {
	log := logger.New("handlers").TraceFromContext(c.UserContext()).File("platforms_handler").Function("List")

	platforms, err := h.controller.List(c.UserContext())
	if err != nil {
		_ = log.Err("failed to list platforms", err)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": platforms})
}
