package handlers

import (
	"github.com/gamedjinn/sync/internal/app"
	"github.com/gamedjinn/sync/internal/apperr"
	syncController "github.com/gamedjinn/sync/internal/controllers/sync"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SyncHandler struct {
	Handler
	controller syncController.SyncControllerInterface
}

func NewSyncHandler(app app.App, router fiber.Router) *SyncHandler {
	return &SyncHandler{
		controller: app.Controllers.Sync,
		Handler: Handler{
			log:        logger.New("handlers").File("sync_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SyncHandler) Register() {
	libraries := h.router.Group("/libraries", h.middleware.RequireAuth())
	libraries.Post("/:id/sync", h.TriggerSync)
	libraries.Get("/:id/sync/status", h.GetSyncStatus)
	libraries.Post("/:id/sync/cancel", h.CancelSync)
}

type triggerSyncRequest struct {
	Force    bool   `json:"force"`
	SyncType string `json:"sync_type"`
}

func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	log := logger.New("handlers").TraceFromContext(c.UserContext()).File("sync_handler").Function("TriggerSync")

	libraryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_library_id", "id must be a valid UUID"))
	}

	var req triggerSyncRequest
	_ = c.BodyParser(&req)

	if err := h.controller.TriggerSync(c.UserContext(), libraryID, req.Force); err != nil {
		log.Info("sync trigger rejected", "libraryID", libraryID, "error", err.Error())
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":    "accepted",
		"libraryId": libraryID,
	})
}

func (h *SyncHandler) GetSyncStatus(c *fiber.Ctx) error {
	libraryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_library_id", "id must be a valid UUID"))
	}

	snapshot, library, err := h.controller.GetSyncStatus(c.UserContext(), libraryID)
	if err != nil {
		return respondError(c, err)
	}

	if snapshot != nil {
		return c.JSON(fiber.Map{"data": snapshot})
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"libraryId":  library.ID,
		"status":     library.SyncStatus,
		"lastSyncAt": library.LastSyncAt,
		"syncError":  library.SyncError,
	}})
}

func (h *SyncHandler) CancelSync(c *fiber.Ctx) error {
	libraryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.Validation("invalid_library_id", "id must be a valid UUID"))
	}

	if err := h.controller.CancelSync(c.UserContext(), libraryID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}
