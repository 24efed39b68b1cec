package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/events"
	"github.com/gamedjinn/sync/internal/logger"
	"github.com/gamedjinn/sync/internal/types"

	"github.com/google/uuid"
)

// SyncProgressChannel is the Realtime Bus channel PT publishes ProgressEvents
// on; SW never talks to the bus or the snapshot cache directly.
const SyncProgressChannel events.Channel = "sync:progress"

const progressSnapshotHashPattern = constants.ProgressEventPrefix + ":%s"

// progressBatchSize and progressInterval implement PT's publish cadence:
// every N Update calls, or every interval elapsed, whichever comes first —
// terminal events always flush immediately regardless of cadence. The count
// is of Update calls, not of the games each call covers.
const (
	progressBatchSize = 10
	progressInterval  = 2 * time.Second
)

// ProgressTrackerService is PT: publishes ProgressEvents to the Realtime Bus
// and mirrors the latest snapshot into the Progress cache partition for
// clients that poll instead of subscribing.
type ProgressTrackerService struct {
	log   logger.Logger
	bus   *events.EventBus
	cache database.CacheClient

	mu       sync.Mutex
	sequence map[uuid.UUID]int
	lastSent map[uuid.UUID]time.Time
	processedSinceFlush map[uuid.UUID]int
}

func NewProgressTrackerService(bus *events.EventBus, cache database.CacheClient) *ProgressTrackerService {
	return &ProgressTrackerService{
		log:                 logger.New("ProgressTrackerService"),
		bus:                 bus,
		cache:               cache,
		sequence:            make(map[uuid.UUID]int),
		lastSent:            make(map[uuid.UUID]time.Time),
		processedSinceFlush: make(map[uuid.UUID]int),
	}
}

func snapshotKey(libraryID uuid.UUID) string {
	return fmt.Sprintf(progressSnapshotHashPattern, libraryID.String())
}

// Start emits the initial `starting` event for a sync, always flushed.
func (s *ProgressTrackerService) Start(ctx context.Context, libraryID uuid.UUID, platform string) error {
	s.mu.Lock()
	s.sequence[libraryID] = 0
	s.processedSinceFlush[libraryID] = 0
	s.mu.Unlock()

	now := time.Now().UTC()
	return s.publish(ctx, &types.ProgressEvent{
		LibraryID: libraryID,
		Platform:  platform,
		Status:    types.SyncEventStarting,
		Message:   "sync starting",
		StartedAt: now,
		UpdatedAt: now,
		Errors:    []string{},
	}, true)
}

// Update reports incremental progress. It only actually publishes once
// progressBatchSize Update calls have accumulated or progressInterval has
// elapsed since the last flush; it does not count games.
func (s *ProgressTrackerService) Update(ctx context.Context, event *types.ProgressEvent) error {
	event.Status = types.SyncEventSyncing
	event.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.processedSinceFlush[event.LibraryID]++
	due := s.processedSinceFlush[event.LibraryID] >= progressBatchSize ||
		time.Since(s.lastSent[event.LibraryID]) >= progressInterval
	s.mu.Unlock()

	if !due {
		return nil
	}

	return s.publish(ctx, event, true)
}

// Finish emits a terminal event (completed, failed, rateLimited, cancelled)
// and is always flushed immediately regardless of cadence.
func (s *ProgressTrackerService) Finish(ctx context.Context, event *types.ProgressEvent, status types.SyncEventStatus) error {
	event.Status = status
	event.UpdatedAt = time.Now().UTC()
	if status == types.SyncEventCompleted {
		event.ProgressPercent = 100
	}
	return s.publish(ctx, event, true)
}

func (s *ProgressTrackerService) publish(ctx context.Context, event *types.ProgressEvent, flush bool) error {
	log := s.log.Function("publish")

	if !flush {
		return nil
	}

	s.mu.Lock()
	s.sequence[event.LibraryID]++
	event.Sequence = s.sequence[event.LibraryID]
	s.lastSent[event.LibraryID] = time.Now()
	s.processedSinceFlush[event.LibraryID] = 0
	s.mu.Unlock()

	data, err := eventDataFromProgress(event)
	if err != nil {
		return log.Err("failed to encode progress event", err, "libraryID", event.LibraryID)
	}

	if err := s.bus.Publish(SyncProgressChannel, events.Event{
		Type:      events.SYNC_PROGRESS,
		Channel:   SyncProgressChannel,
		Data:      data,
		Timestamp: event.UpdatedAt,
	}); err != nil {
		return log.Err("failed to publish progress event", err, "libraryID", event.LibraryID)
	}

	if err := database.NewCacheBuilder(s.cache, snapshotKey(event.LibraryID)).
		WithContext(ctx).
		WithTTL(constants.ProgressEventTTL).
		WithStruct(event).
		Set(); err != nil {
		log.Warn("failed to mirror progress snapshot", "error", err, "libraryID", event.LibraryID)
	}

	if event.Status.IsTerminal() {
		s.mu.Lock()
		delete(s.sequence, event.LibraryID)
		delete(s.lastSent, event.LibraryID)
		delete(s.processedSinceFlush, event.LibraryID)
		s.mu.Unlock()
	}

	return nil
}

// LatestSnapshot returns the last published ProgressEvent for libraryID, for
// clients that poll GET /libraries/{id}/sync/status instead of subscribing.
func (s *ProgressTrackerService) LatestSnapshot(ctx context.Context, libraryID uuid.UUID) (*types.ProgressEvent, error) {
	var event types.ProgressEvent
	found, err := database.NewCacheBuilder(s.cache, snapshotKey(libraryID)).WithContext(ctx).Get(&event)
	if err != nil {
		return nil, s.log.Err("failed to load progress snapshot", err, "libraryID", libraryID)
	}
	if !found {
		return nil, nil
	}
	return &event, nil
}

func eventDataFromProgress(event *types.ProgressEvent) (map[string]any, error) {
	return map[string]any{
		"libraryId":       event.LibraryID.String(),
		"platform":        event.Platform,
		"status":          string(event.Status),
		"progressPercent": event.ProgressPercent,
		"gamesProcessed":  event.GamesProcessed,
		"gamesTotal":      event.GamesTotal,
		"gamesAdded":      event.GamesAdded,
		"gamesUpdated":    event.GamesUpdated,
		"currentGame":     event.CurrentGame,
		"message":         event.Message,
		"startedAt":       event.StartedAt,
		"updatedAt":       event.UpdatedAt,
		"errors":          event.Errors,
		"sequence":        event.Sequence,
	}, nil
}
