package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gamedjinn/sync/internal/constants"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/platforms"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/types"

	"github.com/gamedjinn/sync/internal/logger"

	"github.com/google/uuid"
)

// lockRenewInterval is how often Run's batch loop re-Sets the sync lock's
// TTL. Keeping it well under constants.SyncLockTTL means a late renewal
// (scheduler jitter, a slow batch) still lands before the lock can expire.
const lockRenewInterval = constants.SyncLockTTL / 3

// upsertBatchSize is the CS upsert granularity SW flushes pending games at,
// independent of PA's own page size: it amortizes database round-trips and
// gives checkpointing a bounded unit of work to redo on crash.
const upsertBatchSize = 100

// Transient backoff tuning: delay = min(maxBackoff, base*2^attempt), full
// jitter, aborting after transientMaxAttempts.
const (
	transientBaseDelay   = 2 * time.Second
	transientMaxDelay    = 2 * time.Minute
	transientMaxAttempts = 5
)

// defaultRateLimits is SW's per-platform request budget; no other
// per-platform rate-limit configuration exists.
var defaultRateLimits = map[string]PlatformRateLimit{
	"steam": {MaxRequests: 100, Window: time.Minute},
}

// SyncJobInput is SW's job argument shape, carried inside a JQ Job's Args.
type SyncJobInput struct {
	LibraryID uuid.UUID
	Force     bool
	SyncType  SyncOperationType
}

// SyncResult is SW's output summary for one run, per spec §4.6.
type SyncResult struct {
	Status         SyncStatus
	GamesProcessed int
	GamesAdded     int
	GamesUpdated   int
	ErrorsCount    int
	DurationMs     int64
}

// SyncWorkerService is SW: the state machine that drives one library's sync
// job from lock acquisition through PA pagination, CS upsert, checkpointing,
// progress publication, and failure classification.
type SyncWorkerService struct {
	log       logger.Logger
	libraries repositories.UserLibraryRepository
	adapters  map[string]platforms.Adapter
	rl        *RateLimiterService
	ss        *SyncStateService
	pt        *ProgressTrackerService
	cs        *CatalogService
	jq        *JobQueueService
}

func NewSyncWorkerService(
	libraries repositories.UserLibraryRepository,
	adapters map[string]platforms.Adapter,
	rl *RateLimiterService,
	ss *SyncStateService,
	pt *ProgressTrackerService,
	cs *CatalogService,
	jq *JobQueueService,
) *SyncWorkerService {
	return &SyncWorkerService{
		log:       logger.New("SyncWorkerService"),
		libraries: libraries,
		adapters:  adapters,
		rl:        rl,
		ss:        ss,
		pt:        pt,
		cs:        cs,
		jq:        jq,
	}
}

// withRetries runs fn, retrying only Transient-classified failures with
// exponential backoff and full jitter up to transientMaxAttempts; any other
// class (or exhaustion) is returned to the caller to classify terminally.
func withRetries[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < transientMaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if platforms.ClassOf(err) != platforms.ErrorClassTransient {
			return zero, err
		}

		delay := math.Min(float64(transientMaxDelay), float64(transientBaseDelay)*math.Pow(2, float64(attempt)))
		jittered := time.Duration(rand.Int63n(int64(delay) + 1))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(jittered):
		}
	}

	return zero, lastErr
}

// Run executes one sync job end to end. It always returns a SyncResult, even
// on terminal failure; the returned error is non-nil only for conditions the
// caller (JQ's dispatch loop) must act on itself, such as being unable to
// even load the library row.
func (s *SyncWorkerService) Run(ctx context.Context, input SyncJobInput) (SyncResult, error) {
	log := s.log.Function("Run")
	start := time.Now()
	workerID := uuid.Must(uuid.NewV7()).String()

	library, err := s.libraries.GetByID(ctx, input.LibraryID)
	if err != nil {
		return SyncResult{Status: SyncStatusFailed}, log.Err("failed to load library", err, "libraryID", input.LibraryID)
	}
	if library == nil {
		return SyncResult{Status: SyncStatusFailed}, log.Err("library not found", fmt.Errorf("library %s not found", input.LibraryID), "libraryID", input.LibraryID)
	}

	if !input.Force {
		syncing, err := s.ss.IsSyncing(ctx, library.ID)
		if err != nil {
			return SyncResult{Status: SyncStatusFailed}, err
		}
		if syncing {
			log.Info("library already syncing, no-op", "libraryID", library.ID)
			return SyncResult{Status: SyncStatusSyncing}, nil
		}
	}

	if err := s.ss.AcquireLock(ctx, library.ID, workerID); err != nil {
		log.Info("lost the race to acquire the sync lock, no-op", "libraryID", library.ID)
		return SyncResult{Status: SyncStatusSyncing}, nil
	}
	releaseLock := true
	defer func() {
		if releaseLock {
			if err := s.ss.ReleaseLock(ctx, library.ID); err != nil {
				log.Warn("failed to release sync lock", "error", err, "libraryID", library.ID)
			}
		}
	}()

	checkpoint, err := s.ss.Load(ctx, library.ID)
	if err != nil {
		return SyncResult{Status: SyncStatusFailed}, err
	}
	if checkpoint == nil || input.Force {
		checkpoint, err = s.ss.Initialize(ctx, library.ID)
		if err != nil {
			return SyncResult{Status: SyncStatusFailed}, err
		}
	}

	if library.Platform == nil {
		s.finalizeFailed(ctx, library, "library has no associated platform")
		return SyncResult{Status: SyncStatusFailed}, nil
	}

	adapter, ok := s.adapters[library.Platform.Slug]
	if !ok {
		s.finalizeFailed(ctx, library, fmt.Sprintf("no adapter registered for platform %q", library.Platform.Slug))
		return SyncResult{Status: SyncStatusFailed}, nil
	}

	if err := s.ss.SetStatus(ctx, library, SyncStatusStarting, nil); err != nil {
		return SyncResult{Status: SyncStatusFailed}, err
	}
	if err := s.pt.Start(ctx, library.ID, library.Platform.Slug); err != nil {
		log.Warn("failed to publish sync start event", "error", err, "libraryID", library.ID)
	}

	op, err := s.cs.RecordSyncOperation(ctx, &SyncOperation{
		LibraryID: library.ID,
		Type:      input.SyncType,
		Status:    SyncOperationStarted,
		StartedAt: start,
	})
	if err != nil {
		return SyncResult{Status: SyncStatusFailed}, err
	}

	credentials := []byte(library.Credentials)
	limit := defaultRateLimits[library.Platform.Slug]

	totalGames, err := withRetries(ctx, func() (int, error) {
		if err := s.rl.Wait(ctx, library.Platform.Slug, library.UserID, limit); err != nil {
			return 0, err
		}
		return adapter.CountGames(ctx, credentials, library.UserIdentifier)
	})
	if err != nil {
		alreadyReleased := s.handleLoopFailure(ctx, library, op, err)
		releaseLock = !alreadyReleased
		return s.resultFromOp(op, failureStatus(err), start), nil
	}

	var pending []platforms.UserGameData
	var seenGameIDs []uuid.UUID
	offset := checkpoint.Offset
	lastRenewal := time.Now()

	for offset < totalGames {
		batch, err := withRetries(ctx, func() ([]platforms.UserGameData, error) {
			if err := s.rl.Wait(ctx, library.Platform.Slug, library.UserID, limit); err != nil {
				return nil, err
			}
			return adapter.FetchBatch(ctx, credentials, library.UserIdentifier, offset, upsertBatchSize)
		})
		if err != nil {
			alreadyReleased := s.handleLoopFailure(ctx, library, op, err)
			releaseLock = !alreadyReleased
			return s.resultFromOp(op, failureStatus(err), start), nil
		}
		if len(batch) == 0 {
			break
		}

		pending = append(pending, batch...)
		offset += len(batch)

		if len(pending) >= upsertBatchSize || offset >= totalGames {
			counts, err := s.cs.UpsertGamesBatch(ctx, library.ID, pending)
			if err != nil {
				s.handleLoopFailure(ctx, library, op, err)
				return s.resultFromOp(op, failureStatus(err), start), nil
			}

			op.RecordBatch(len(pending), counts.Added, counts.Updated)
			if err := s.cs.UpdateSyncOperation(ctx, op); err != nil {
				log.Warn("failed to persist sync operation progress", "error", err, "libraryID", library.ID)
			}

			seenGameIDs = append(seenGameIDs, counts.GameIDs...)
			if err := s.ss.UpdateOffset(ctx, checkpoint, offset, counts.GameIDs); err != nil {
				log.Warn("failed to checkpoint offset", "error", err, "libraryID", library.ID)
			}

			s.syncAchievements(ctx, library, adapter, pending, counts.GameIDs, credentials, limit)

			event := s.progressEvent(library, op, totalGames, pending[len(pending)-1].Game.Title)
			if err := s.pt.Update(ctx, event); err != nil {
				log.Warn("failed to publish progress update", "error", err, "libraryID", library.ID)
			}

			pending = pending[:0]
		}

		if time.Since(lastRenewal) >= lockRenewInterval {
			renewed, err := s.ss.RenewLock(ctx, library.ID, workerID)
			if err != nil {
				log.Warn("failed to renew sync lock", "error", err, "libraryID", library.ID)
			} else if !renewed {
				log.Warn("lost sync lock ownership, pausing", "libraryID", library.ID)
				return s.finalizeCancelled(ctx, library, op, start)
			}
			lastRenewal = time.Now()
		}

		shouldPause, err := s.ss.ShouldPause(ctx, library, workerID)
		if err != nil {
			log.Warn("failed to evaluate pause condition", "error", err, "libraryID", library.ID)
		}
		if shouldPause {
			return s.finalizeCancelled(ctx, library, op, start)
		}
	}

	return s.finalizeCompleted(ctx, library, op, start, seenGameIDs)
}

// syncAchievements pulls each just-upserted game's achievement schema and
// the library user's unlock state from the platform, then persists both via
// CS. It's best-effort: a platform that can't supply achievements for a
// title (or errors fetching them) doesn't fail the sync, it just logs and
// moves to the next game.
func (s *SyncWorkerService) syncAchievements(ctx context.Context, library *UserLibrary, adapter platforms.Adapter, batch []platforms.UserGameData, gameIDs []uuid.UUID, credentials []byte, limit PlatformRateLimit) {
	log := s.log.Function("syncAchievements")

	for i, item := range batch {
		if i >= len(gameIDs) || item.Game.PlatformGameID == "" {
			continue
		}
		gameID := gameIDs[i]

		defs, err := withRetries(ctx, func() ([]platforms.AchievementData, error) {
			if err := s.rl.Wait(ctx, library.Platform.Slug, library.UserID, limit); err != nil {
				return nil, err
			}
			return adapter.GetGameAchievements(ctx, credentials, item.Game.PlatformGameID)
		})
		if err != nil {
			log.Warn("failed to fetch achievement schema, skipping game", "error", err, "libraryID", library.ID, "gameID", gameID)
			continue
		}

		unlocked, err := withRetries(ctx, func() ([]platforms.UserAchievementData, error) {
			if err := s.rl.Wait(ctx, library.Platform.Slug, library.UserID, limit); err != nil {
				return nil, err
			}
			return adapter.GetUserAchievements(ctx, credentials, library.UserIdentifier, item.Game.PlatformGameID)
		})
		if err != nil {
			log.Warn("failed to fetch user achievement state, skipping game", "error", err, "libraryID", library.ID, "gameID", gameID)
			continue
		}

		if err := s.cs.SyncAchievementsForGame(ctx, library.ID, gameID, library.PlatformID, defs, unlocked); err != nil {
			log.Warn("failed to persist achievements", "error", err, "libraryID", library.ID, "gameID", gameID)
		}
	}
}

// progressEvent builds the ProgressEvent PT.Update/Finish publishes for the
// current state of op.
func (s *SyncWorkerService) progressEvent(library *UserLibrary, op *SyncOperation, gamesTotal int, currentGameTitle string) *types.ProgressEvent {
	var currentGame *string
	if currentGameTitle != "" {
		currentGame = &currentGameTitle
	}
	total := gamesTotal
	return &types.ProgressEvent{
		LibraryID:       library.ID,
		Platform:        library.Platform.Slug,
		ProgressPercent: op.GetPercentComplete(gamesTotal),
		GamesProcessed:  op.GamesProcessed,
		GamesTotal:      &total,
		GamesAdded:      op.GamesAdded,
		GamesUpdated:    op.GamesUpdated,
		CurrentGame:     currentGame,
		Message:         "syncing",
		StartedAt:       op.StartedAt,
		Errors:          []string{},
	}
}

func (s *SyncWorkerService) finalizeCompleted(ctx context.Context, library *UserLibrary, op *SyncOperation, start time.Time, seenGameIDs []uuid.UUID) (SyncResult, error) {
	log := s.log.Function("finalizeCompleted")
	now := time.Now().UTC()

	gamesRemoved, err := s.cs.MarkAbsentGamesUnowned(ctx, library.ID, seenGameIDs)
	if err != nil {
		log.Warn("failed to delist absent games", "error", err, "libraryID", library.ID)
	}

	op.MarkCompleted(now, gamesRemoved)
	if err := s.cs.UpdateSyncOperation(ctx, op); err != nil {
		log.Warn("failed to finalize sync operation", "error", err, "libraryID", library.ID)
	}
	if err := s.ss.SetStatus(ctx, library, SyncStatusCompleted, nil); err != nil {
		log.Warn("failed to mark library completed", "error", err, "libraryID", library.ID)
	}
	if err := s.ss.Clear(ctx, library.ID); err != nil {
		log.Warn("failed to clear checkpoint", "error", err, "libraryID", library.ID)
	}

	event := s.progressEvent(library, op, op.GamesProcessed, "")
	event.Message = "sync completed"
	if err := s.pt.Finish(ctx, event, types.SyncEventCompleted); err != nil {
		log.Warn("failed to publish completion event", "error", err, "libraryID", library.ID)
	}

	return SyncResult{
		Status:         SyncStatusCompleted,
		GamesProcessed: op.GamesProcessed,
		GamesAdded:     op.GamesAdded,
		GamesUpdated:   op.GamesUpdated,
		ErrorsCount:    op.ErrorsCount,
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}

func (s *SyncWorkerService) finalizeCancelled(ctx context.Context, library *UserLibrary, op *SyncOperation, start time.Time) (SyncResult, error) {
	log := s.log.Function("finalizeCancelled")
	now := time.Now().UTC()

	op.MarkCancelled(now)
	if err := s.cs.UpdateSyncOperation(ctx, op); err != nil {
		log.Warn("failed to finalize cancelled sync operation", "error", err, "libraryID", library.ID)
	}
	if err := s.ss.SetStatus(ctx, library, SyncStatusCancelled, nil); err != nil {
		log.Warn("failed to mark library cancelled", "error", err, "libraryID", library.ID)
	}

	event := s.progressEvent(library, op, op.GamesProcessed, "")
	event.Message = "sync cancelled"
	if err := s.pt.Finish(ctx, event, types.SyncEventCancelled); err != nil {
		log.Warn("failed to publish cancellation event", "error", err, "libraryID", library.ID)
	}

	return SyncResult{
		Status:         SyncStatusCancelled,
		GamesProcessed: op.GamesProcessed,
		GamesAdded:     op.GamesAdded,
		GamesUpdated:   op.GamesUpdated,
		ErrorsCount:    op.ErrorsCount,
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}

func (s *SyncWorkerService) finalizeFailed(ctx context.Context, library *UserLibrary, reason string) {
	log := s.log.Function("finalizeFailed")
	if err := s.ss.SetStatus(ctx, library, SyncStatusFailed, &reason); err != nil {
		log.Warn("failed to mark library failed", "error", err, "libraryID", library.ID)
	}
}

func failureStatus(err error) SyncStatus {
	if platforms.ClassOf(err) == platforms.ErrorClassRateLimited {
		return SyncStatusRateLimited
	}
	return SyncStatusFailed
}

// handleLoopFailure classifies err per spec §4.6 and drives the terminal
// transition for everything withRetries couldn't recover from: RateLimited
// re-enqueues on the low queue with notBefore and releases the lock so
// another worker can pick the resumed sync back up; everything else is a
// terminal failure with the checkpoint retained for an operator-triggered
// retry. It returns true once the lock has already been released, so Run
// knows not to release it again in its deferred cleanup.
func (s *SyncWorkerService) handleLoopFailure(ctx context.Context, library *UserLibrary, op *SyncOperation, err error) bool {
	log := s.log.Function("handleLoopFailure")
	reason := err.Error()

	if platforms.ClassOf(err) == platforms.ErrorClassRateLimited {
		retryAfter := platforms.RetryAfterOf(err)
		if retryAfter <= 0 {
			retryAfter = 60 * time.Second
		}

		if setErr := s.ss.SetStatus(ctx, library, SyncStatusRateLimited, &reason); setErr != nil {
			log.Warn("failed to mark library rate limited", "error", setErr, "libraryID", library.ID)
		}

		notBefore := time.Now().Add(retryAfter)
		if _, enqErr := s.jq.Enqueue(ctx, QueueLow, "sync.library", map[string]any{"libraryId": library.ID.String()}, &notBefore); enqErr != nil {
			log.Warn("failed to re-enqueue rate-limited sync", "error", enqErr, "libraryID", library.ID)
		}

		event := s.progressEvent(library, op, op.GamesProcessed, "")
		event.Errors = []string{reason}
		event.Message = "rate limited"
		if ptErr := s.pt.Finish(ctx, event, types.SyncEventRateLimited); ptErr != nil {
			log.Warn("failed to publish rate-limited event", "error", ptErr, "libraryID", library.ID)
		}

		if relErr := s.ss.ReleaseLock(ctx, library.ID); relErr != nil {
			log.Warn("failed to release sync lock after rate limit", "error", relErr, "libraryID", library.ID)
		}
		return true
	}

	op.MarkFailed(time.Now().UTC(), reason)
	if updErr := s.cs.UpdateSyncOperation(ctx, op); updErr != nil {
		log.Warn("failed to finalize failed sync operation", "error", updErr, "libraryID", library.ID)
	}
	if setErr := s.ss.SetStatus(ctx, library, SyncStatusFailed, &reason); setErr != nil {
		log.Warn("failed to mark library failed", "error", setErr, "libraryID", library.ID)
	}

	event := s.progressEvent(library, op, op.GamesProcessed, "")
	event.Errors = []string{reason}
	event.Message = "sync failed"
	if ptErr := s.pt.Finish(ctx, event, types.SyncEventFailed); ptErr != nil {
		log.Warn("failed to publish failure event", "error", ptErr, "libraryID", library.ID)
	}

	return false
}

func (s *SyncWorkerService) resultFromOp(op *SyncOperation, status SyncStatus, start time.Time) SyncResult {
	return SyncResult{
		Status:         status,
		GamesProcessed: op.GamesProcessed,
		GamesAdded:     op.GamesAdded,
		GamesUpdated:   op.GamesUpdated,
		ErrorsCount:    op.ErrorsCount,
		DurationMs:     time.Since(start).Milliseconds(),
	}
}
