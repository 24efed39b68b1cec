package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const lockHashPattern = constants.SyncLockPrefix + ":%s"
const checkpointHashPattern = constants.SyncCheckpointPrefix + ":%s"

// checkpointTTL is how long a checkpoint survives without being saved again.
const checkpointTTL = 7 * 24 * time.Hour

// Checkpoint is SS's durable resume position for one library's in-progress
// or most recently paused sync.
type Checkpoint struct {
	LibraryID     uuid.UUID `json:"libraryId"`
	Offset        int       `json:"offset"`
	GamesSeen     []string  `json:"gamesSeen"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// SyncStateService is SS: the single source of truth for whether a library
// is currently syncing, and where a resumed sync should pick up from. The
// lock lives in Valkey so a crashed worker's hold expires instead of
// wedging the library forever.
type SyncStateService struct {
	log       logger.Logger
	cache     valkey.Client
	libraries repositories.UserLibraryRepository
}

func NewSyncStateService(cache database.CacheClient, libraries repositories.UserLibraryRepository) *SyncStateService {
	return &SyncStateService{
		log:       logger.New("SyncStateService"),
		cache:     cache,
		libraries: libraries,
	}
}

func lockKey(libraryID uuid.UUID) string {
	return fmt.Sprintf(lockHashPattern, libraryID.String())
}

func checkpointKey(libraryID uuid.UUID) string {
	return fmt.Sprintf(checkpointHashPattern, libraryID.String())
}

// IsSyncing reports whether libraryID currently holds the sync lock.
func (s *SyncStateService) IsSyncing(ctx context.Context, libraryID uuid.UUID) (bool, error) {
	var held string
	found, err := database.NewCacheBuilder(s.cache, lockKey(libraryID)).WithContext(ctx).Get(&held)
	if err != nil {
		return false, s.log.Err("failed to check sync lock", err, "libraryID", libraryID)
	}
	return found, nil
}

// AcquireLock claims the sync lock for libraryID via a single atomic
// SET-if-not-exists, failing with an apperr.Conflict if another worker
// already holds it. Checking IsSyncing first and only then Set-ing would be
// a check-then-act race: two concurrent callers could both observe "not
// syncing" before either writes the lock. The lock self-expires after
// constants.SyncLockTTL so a crashed worker never wedges the library.
func (s *SyncStateService) AcquireLock(ctx context.Context, libraryID uuid.UUID, workerID string) error {
	log := s.log.Function("AcquireLock")

	acquired, err := database.NewCacheBuilder(s.cache, lockKey(libraryID)).
		WithContext(ctx).
		WithTTL(constants.SyncLockTTL).
		WithStruct(workerID).
		SetNX()
	if err != nil {
		return log.Err("failed to acquire sync lock", err, "libraryID", libraryID)
	}
	if !acquired {
		return apperr.Conflict("sync_in_progress", "a sync is already in progress for this library").
			WithDetails(map[string]any{"libraryId": libraryID})
	}

	return nil
}

// RenewLock refreshes the lock's TTL without changing its owner, provided
// lockOwnerID still matches the held value. SW calls this as a heartbeat
// from its batch loop once lockRenewInterval has passed since the last
// renewal, so a sync running longer than SyncLockTTL
// never has its lock silently expire out from under it. Returns false if
// the lock was lost (expired, released, or stolen) rather than erroring,
// since that's the normal shape of "someone else owns it now".
func (s *SyncStateService) RenewLock(ctx context.Context, libraryID uuid.UUID, lockOwnerID string) (bool, error) {
	var owner string
	found, err := database.NewCacheBuilder(s.cache, lockKey(libraryID)).WithContext(ctx).Get(&owner)
	if err != nil {
		return false, s.log.Err("failed to check sync lock ownership", err, "libraryID", libraryID)
	}
	if !found || owner != lockOwnerID {
		return false, nil
	}

	if err := database.NewCacheBuilder(s.cache, lockKey(libraryID)).
		WithContext(ctx).
		WithTTL(constants.SyncLockTTL).
		WithStruct(lockOwnerID).
		Set(); err != nil {
		return false, s.log.Err("failed to renew sync lock", err, "libraryID", libraryID)
	}

	return true, nil
}

// ReleaseLock frees the sync lock regardless of who holds it; callers use
// this from both normal completion and failure-cleanup paths.
func (s *SyncStateService) ReleaseLock(ctx context.Context, libraryID uuid.UUID) error {
	if err := database.NewCacheBuilder(s.cache, lockKey(libraryID)).WithContext(ctx).Delete(); err != nil {
		return s.log.Err("failed to release sync lock", err, "libraryID", libraryID)
	}
	return nil
}

// Initialize starts a fresh checkpoint at offset zero, discarding any prior
// checkpoint for the library — used for a full (non-resuming) sync.
func (s *SyncStateService) Initialize(ctx context.Context, libraryID uuid.UUID) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		LibraryID:     libraryID,
		Offset:        0,
		GamesSeen:     []string{},
		LastUpdatedAt: time.Now().UTC(),
	}
	if err := s.Save(ctx, checkpoint); err != nil {
		return nil, err
	}
	return checkpoint, nil
}

// Load returns the library's saved checkpoint, or nil if none exists (the
// library has never synced, or its last sync completed and cleared it).
func (s *SyncStateService) Load(ctx context.Context, libraryID uuid.UUID) (*Checkpoint, error) {
	var checkpoint Checkpoint
	found, err := database.NewCacheBuilder(s.cache, checkpointKey(libraryID)).WithContext(ctx).Get(&checkpoint)
	if err != nil {
		return nil, s.log.Err("failed to load sync checkpoint", err, "libraryID", libraryID)
	}
	if !found {
		return nil, nil
	}
	return &checkpoint, nil
}

// Save persists checkpoint, overwriting any prior state for its library.
func (s *SyncStateService) Save(ctx context.Context, checkpoint *Checkpoint) error {
	checkpoint.LastUpdatedAt = time.Now().UTC()
	if err := database.NewCacheBuilder(s.cache, checkpointKey(checkpoint.LibraryID)).
		WithContext(ctx).
		WithTTL(checkpointTTL).
		WithStruct(checkpoint).
		Set(); err != nil {
		return s.log.Err("failed to save sync checkpoint", err, "libraryID", checkpoint.LibraryID)
	}
	return nil
}

// UpdateOffset advances checkpoint's pagination offset and appended-seen-game
// set, then persists it — called by SW after each successfully processed
// batch so a crash mid-sync resumes from the last committed batch.
func (s *SyncStateService) UpdateOffset(ctx context.Context, checkpoint *Checkpoint, newOffset int, seenGameIDs []uuid.UUID) error {
	checkpoint.Offset = newOffset
	for _, id := range seenGameIDs {
		checkpoint.GamesSeen = append(checkpoint.GamesSeen, id.String())
	}
	return s.Save(ctx, checkpoint)
}

// Clear removes the checkpoint once a sync reaches a terminal state
// (completed or cancelled); a failed sync keeps its checkpoint so a retry
// resumes instead of restarting.
func (s *SyncStateService) Clear(ctx context.Context, libraryID uuid.UUID) error {
	if err := database.NewCacheBuilder(s.cache, checkpointKey(libraryID)).WithContext(ctx).Delete(); err != nil {
		return s.log.Err("failed to clear sync checkpoint", err, "libraryID", libraryID)
	}
	return nil
}

// SetStatus mirrors a sync transition onto the UserLibrary row so HTTP reads
// of library state don't need to consult the cache at all.
func (s *SyncStateService) SetStatus(ctx context.Context, library *UserLibrary, status SyncStatus, reason *string) error {
	switch status {
	case SyncStatusSyncing:
		library.MarkSyncing()
	case SyncStatusCompleted:
		library.MarkCompleted(time.Now().UTC())
	case SyncStatusFailed:
		msg := ""
		if reason != nil {
			msg = *reason
		}
		library.MarkFailed(msg)
	case SyncStatusCancelled:
		library.MarkCancelled()
	case SyncStatusRateLimited:
		msg := ""
		if reason != nil {
			msg = *reason
		}
		library.MarkRateLimited(msg)
	default:
		library.SyncStatus = status
	}

	return s.libraries.Update(ctx, library)
}

// ShouldPause reports whether SW should yield mid-sync — either the lock
// expired out from under it (another worker may now hold it, or the library
// was cancelled) or the library's SyncEnabled flag was flipped off.
func (s *SyncStateService) ShouldPause(ctx context.Context, library *UserLibrary, lockOwnerID string) (bool, error) {
	if !library.SyncEnabled {
		return true, nil
	}

	var owner string
	found, err := database.NewCacheBuilder(s.cache, lockKey(library.ID)).WithContext(ctx).Get(&owner)
	if err != nil {
		return false, s.log.Err("failed to check sync lock ownership", err, "libraryID", library.ID)
	}
	if !found || owner != lockOwnerID {
		return true, nil
	}

	return false, nil
}
