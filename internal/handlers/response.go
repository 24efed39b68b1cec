package handlers

import (
	"time"

	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/handlers/middleware"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// statusForKind maps apperr's platform-independent taxonomy onto the HTTP
// status codes spec §6.1 contracts.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindAuth:
		return fiber.StatusUnauthorized
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindRateLimited:
		return fiber.StatusTooManyRequests
	case apperr.KindExternal:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders err in the unified error shape spec §6.1 contracts,
// logging anything that isn't an expected apperr.Error as an internal fault.
func respondError(c *fiber.Ctx, err error) error {
	traceID := middleware.GetTraceID(c)

	ae, ok := apperr.As(err)
	if !ok {
		logger.New("handlers").TraceFromContext(c.Context()).Function("respondError").
			Er("unclassified error reached the HTTP boundary", err)
		ae = apperr.Internal("internal_error", "an unexpected error occurred")
	}

	return c.Status(statusForKind(ae.Kind)).JSON(fiber.Map{
		"error": fiber.Map{
			"code":      ae.Code,
			"message":   ae.Message,
			"details":   ae.Details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"trace_id":  traceID,
		},
	})
}
