package handlers

import (
	"strconv"

	"github.com/gamedjinn/sync/internal/app"
	librariesController "github.com/gamedjinn/sync/internal/controllers/libraries"
	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LibrariesHandler struct {
	Handler
	controller librariesController.LibrariesControllerInterface
}

func NewLibrariesHandler(app app.App, router fiber.Router) *LibrariesHandler {
	return &LibrariesHandler{
		controller: app.Controllers.Libraries,
		Handler: Handler{
			log:        logger.New("handlers").File("libraries_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *LibrariesHandler) Register() {
	libraries := h.router.Group("/libraries", h.middleware.RequireAuth())
	libraries.Get("/", h.List)
	libraries.Post("/", h.Create)
	libraries.Patch("/:id", h.Update)
	libraries.Delete("/:id", h.Delete)
}

func (h *LibrariesHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	libraries, total, err := h.controller.List(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, err)
	}

	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}

	return c.JSON(fiber.Map{
		"data":  libraries,
		"page":  page,
		"pages": pages,
		"total": total,
	})
}

type createLibraryRequest struct {
	PlatformID     string         `json:"platform_id"`
	UserIdentifier string         `json:"user_identifier"`
	DisplayName    string         `json:"display_name"`
	Credentials    datatypes.JSON `json:"credentials"`
}

func (h *LibrariesHandler) Create(c *fiber.Ctx) error {
	var req createLibraryRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("invalid_body", "request body could not be parsed"))
	}

	platformID, err := uuid.Parse(req.PlatformID)
	if err != nil {
		return respondError(c, apperr.Validation("invalid_platform_id", "platform_id must be a valid UUID"))
	}
	if req.UserIdentifier == "" {
		return respondError(c, apperr.Validation("missing_user_identifier", "user_identifier is required"))
	}

	library, err := h.controller.Create(c.UserContext(), librariesController.CreateLibraryInput{
		PlatformID:     platformID,
		UserIdentifier: req.UserIdentifier,
		DisplayName:    req.DisplayName,
		Credentials:    req.Credentials,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": library})
}

type updateLibraryRequest struct {
	SyncEnabled *bool   `json:"sync_enabled"`
	DisplayName *string `json:"display_name"`
}

func (h *LibrariesHandler) Update(c *fiber.Ctx) error {
	libraryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_library_id", "id must be a valid UUID"))
	}

	var req updateLibraryRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Validation("invalid_body", "request body could not be parsed"))
	}

	library, err := h.controller.Update(c.UserContext(), libraryID, librariesController.UpdateLibraryInput{
		SyncEnabled: req.SyncEnabled,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": library})
}

func (h *LibrariesHandler) Delete(c *fiber.Ctx) error {
	libraryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_library_id", "id must be a valid UUID"))
	}

	if err := h.controller.Delete(c.UserContext(), libraryID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
