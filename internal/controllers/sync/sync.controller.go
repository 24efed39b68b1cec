// Package syncController triggers, reports on, and cancels a library sync,
// translating the HTTP surface's intent into JQ enqueues and SS/PT reads.
package syncController

import (
	"context"
	"time"

	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"
	"github.com/gamedjinn/sync/internal/types"

	"github.com/google/uuid"
)

type SyncController struct {
	libraries repositories.UserLibraryRepository
	jq        *services.JobQueueService
	ss        *services.SyncStateService
	pt        *services.ProgressTrackerService
}

type SyncControllerInterface interface {
	TriggerSync(ctx context.Context, libraryID uuid.UUID, force bool) error
	GetSyncStatus(ctx context.Context, libraryID uuid.UUID) (*types.ProgressEvent, *UserLibrary, error)
	CancelSync(ctx context.Context, libraryID uuid.UUID) error
}

func New(
	libraries repositories.UserLibraryRepository,
	jq *services.JobQueueService,
	ss *services.SyncStateService,
	pt *services.ProgressTrackerService,
) SyncControllerInterface {
	return &SyncController{libraries: libraries, jq: jq, ss: ss, pt: pt}
}

// TriggerSync enqueues a high-priority, manually-requested sync job for
// libraryID. A library already syncing returns 409 unless force is set, in
// which case the existing lock is released and a full sync is queued in
// its place.
func (sc *SyncController) TriggerSync(ctx context.Context, libraryID uuid.UUID, force bool) error {
	log := logger.NewWithContext(ctx, "syncController").Function("TriggerSync")

	library, err := sc.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return log.Err("failed to load library", err, "libraryID", libraryID)
	}
	if library == nil {
		return apperr.NotFound("library_not_found", "library not found").WithDetails(map[string]any{"libraryId": libraryID})
	}

	syncing, err := sc.ss.IsSyncing(ctx, libraryID)
	if err != nil {
		return log.Err("failed to check sync lock", err, "libraryID", libraryID)
	}
	if syncing {
		if !force {
			return apperr.Conflict("sync_in_progress", "a sync is already in progress for this library").
				WithDetails(map[string]any{"libraryId": libraryID})
		}
		if err := sc.ss.ReleaseLock(ctx, libraryID); err != nil {
			return log.Err("failed to release existing sync lock", err, "libraryID", libraryID)
		}
	}

	syncType := SyncOperationIncrementalSync
	if force {
		syncType = SyncOperationFullSync
	}

	if _, err := sc.jq.Enqueue(ctx, services.QueueHigh, "sync.library", map[string]any{
		"libraryId": libraryID.String(),
		"force":     force,
		"syncType":  string(syncType),
	}, nil); err != nil {
		return log.Err("failed to enqueue sync job", err, "libraryID", libraryID)
	}

	log.Info("sync job enqueued", "libraryID", libraryID, "force", force)
	return nil
}

// GetSyncStatus prefers PT's live snapshot (accurate mid-sync); when none
// exists it falls back to the library's last-persisted status, covering the
// window before a worker has published its first progress event.
func (sc *SyncController) GetSyncStatus(ctx context.Context, libraryID uuid.UUID) (*types.ProgressEvent, *UserLibrary, error) {
	log := logger.NewWithContext(ctx, "syncController").Function("GetSyncStatus")

	library, err := sc.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, nil, log.Err("failed to load library", err, "libraryID", libraryID)
	}
	if library == nil {
		return nil, nil, apperr.NotFound("library_not_found", "library not found").WithDetails(map[string]any{"libraryId": libraryID})
	}

	snapshot, err := sc.pt.LatestSnapshot(ctx, libraryID)
	if err != nil {
		return nil, nil, log.Err("failed to load progress snapshot", err, "libraryID", libraryID)
	}

	return snapshot, library, nil
}

// CancelSync deletes the SS lock, the cancellation signal a worker observes
// at its next batch boundary (spec's cancellation API).
func (sc *SyncController) CancelSync(ctx context.Context, libraryID uuid.UUID) error {
	log := logger.NewWithContext(ctx, "syncController").Function("CancelSync")

	library, err := sc.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return log.Err("failed to load library", err, "libraryID", libraryID)
	}
	if library == nil {
		return apperr.NotFound("library_not_found", "library not found").WithDetails(map[string]any{"libraryId": libraryID})
	}

	if err := sc.ss.ReleaseLock(ctx, libraryID); err != nil {
		return log.Err("failed to release sync lock", err, "libraryID", libraryID)
	}

	log.Info("sync cancellation requested", "libraryID", libraryID, "at", time.Now().UTC())
	return nil
}
