package types

import (
	"time"

	"github.com/google/uuid"
)

// SyncEventStatus is the lifecycle state surfaced in a ProgressEvent.
type SyncEventStatus string

const (
	SyncEventStarting    SyncEventStatus = "starting"
	SyncEventSyncing     SyncEventStatus = "syncing"
	SyncEventCompleted   SyncEventStatus = "completed"
	SyncEventFailed      SyncEventStatus = "failed"
	SyncEventRateLimited SyncEventStatus = "rateLimited"
	SyncEventCancelled   SyncEventStatus = "cancelled"
)

// IsTerminal reports whether status ends the sync (no further events for
// this operation will follow).
func (s SyncEventStatus) IsTerminal() bool {
	switch s {
	case SyncEventCompleted, SyncEventFailed, SyncEventCancelled:
		return true
	default:
		return false
	}
}

// ProgressEvent is the document PT publishes to the Realtime Bus and mirrors
// into the Progress cache for polling clients. Fields match the
// sync status payload surfaced over both the websocket channel and the
// library status endpoint.
type ProgressEvent struct {
	LibraryID       uuid.UUID       `json:"libraryId"`
	Platform        string          `json:"platform"`
	Status          SyncEventStatus `json:"status"`
	ProgressPercent int             `json:"progressPercent"`
	GamesProcessed  int             `json:"gamesProcessed"`
	GamesTotal      *int            `json:"gamesTotal,omitempty"`
	GamesAdded      int             `json:"gamesAdded"`
	GamesUpdated    int             `json:"gamesUpdated"`
	CurrentGame     *string         `json:"currentGame,omitempty"`
	Message         string          `json:"message"`
	StartedAt       time.Time       `json:"startedAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Errors          []string        `json:"errors"`

	// Sequence enforces the per-library monotonic ordering invariant: a
	// subscriber can detect and discard an out-of-order delivery.
	Sequence int `json:"sequence"`
}
