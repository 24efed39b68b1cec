package handlers

import (
	"strconv"

	"github.com/gamedjinn/sync/internal/app"
	"github.com/gamedjinn/sync/internal/apperr"
	gamesController "github.com/gamedjinn/sync/internal/controllers/games"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type GamesHandler struct {
	Handler
	controller gamesController.GamesControllerInterface
}

func NewGamesHandler(app app.App, router fiber.Router) *GamesHandler {
	return &GamesHandler{
		controller: app.Controllers.Games,
		Handler: Handler{
			log:        logger.New("handlers").File("games_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *GamesHandler) Register() {
	games := h.router.Group("/games", h.middleware.RequireAuth())
	games.Get("/search", h.Search)
	games.Get("/", h.List)
	games.Get("/:id", h.GetDetails)
}

func (h *GamesHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	games, total, err := h.controller.List(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": games, "page": page, "total": total})
}

func (h *GamesHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return respondError(c, apperr.Validation("missing_query", "q is required"))
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	games, err := h.controller.Search(c.UserContext(), query, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": games, "page": page})
}

func (h *GamesHandler) GetDetails(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_game_id", "id must be a valid UUID"))
	}

	var libraryID *uuid.UUID
	if raw := c.Query("library_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return respondError(c, apperr.Validation("invalid_library_id", "library_id must be a valid UUID"))
		}
		libraryID = &parsed
	}

	game, userGame, err := h.controller.GetDetails(c.UserContext(), gameID, libraryID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"game": game, "userGame": userGame}})
}
