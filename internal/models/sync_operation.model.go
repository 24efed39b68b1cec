package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SyncOperationType string

const (
	SyncOperationFullSync        SyncOperationType = "fullSync"
	SyncOperationIncrementalSync SyncOperationType = "incrementalSync"
	SyncOperationManualSync      SyncOperationType = "manualSync"
)

type SyncOperationStatus string

const (
	SyncOperationStarted    SyncOperationStatus = "started"
	SyncOperationInProgress SyncOperationStatus = "inProgress"
	SyncOperationCompleted  SyncOperationStatus = "completed"
	SyncOperationFailed     SyncOperationStatus = "failed"
	SyncOperationCancelled  SyncOperationStatus = "cancelled"
)

// SyncOperation is the durable audit-log row for a single run of SW against
// a library. Counters are monotonic for the lifetime of the row.
type SyncOperation struct {
	BaseUUIDModel
	LibraryID     uuid.UUID           `gorm:"type:uuid;not null;index"  json:"libraryId"`
	Type          SyncOperationType   `gorm:"type:varchar(24);not null" json:"type"`
	Status        SyncOperationStatus `gorm:"type:varchar(16);not null;default:'started';index" json:"status"`
	StartedAt     time.Time           `gorm:"not null"                  json:"startedAt"`
	CompletedAt   *time.Time          `                                 json:"completedAt,omitempty"`
	GamesProcessed int                `gorm:"not null;default:0"        json:"gamesProcessed"`
	GamesAdded     int                `gorm:"not null;default:0"        json:"gamesAdded"`
	GamesUpdated   int                `gorm:"not null;default:0"        json:"gamesUpdated"`
	GamesRemoved   int                `gorm:"not null;default:0"        json:"gamesRemoved"`
	ErrorsCount    int                `gorm:"not null;default:0"        json:"errorsCount"`
	ErrorDetails   *string            `gorm:"type:text"                 json:"errorDetails,omitempty"`
	Log            datatypes.JSON     `gorm:"type:jsonb"                json:"log,omitempty"`
}

func (SyncOperation) TableName() string {
	return "sync_operations"
}

func (s *SyncOperation) MarkInProgress() {
	s.Status = SyncOperationInProgress
}

func (s *SyncOperation) RecordBatch(processed, added, updated int) {
	s.GamesProcessed += processed
	s.GamesAdded += added
	s.GamesUpdated += updated
}

func (s *SyncOperation) MarkCompleted(at time.Time, gamesRemoved int) {
	s.Status = SyncOperationCompleted
	s.CompletedAt = &at
	s.GamesRemoved = gamesRemoved
}

func (s *SyncOperation) MarkFailed(at time.Time, reason string) {
	s.Status = SyncOperationFailed
	s.CompletedAt = &at
	s.ErrorsCount++
	s.ErrorDetails = &reason
}

func (s *SyncOperation) MarkCancelled(at time.Time) {
	s.Status = SyncOperationCancelled
	s.CompletedAt = &at
}

func (s *SyncOperation) IsTerminal() bool {
	switch s.Status {
	case SyncOperationCompleted, SyncOperationFailed, SyncOperationCancelled:
		return true
	default:
		return false
	}
}

// GetPercentComplete estimates progress against an expected total. Callers
// pass the last-known remote count; 0 when unknown yields 0 rather than a
// division by zero.
func (s *SyncOperation) GetPercentComplete(expectedTotal int) int {
	if expectedTotal <= 0 {
		return 0
	}
	pct := (s.GamesProcessed * 100) / expectedTotal
	if pct > 100 {
		pct = 100
	}
	return pct
}
