package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SyncStatus string

const (
	SyncStatusIdle        SyncStatus = "idle"
	SyncStatusStarting    SyncStatus = "starting"
	SyncStatusSyncing     SyncStatus = "syncing"
	SyncStatusCompleted   SyncStatus = "completed"
	SyncStatusFailed      SyncStatus = "failed"
	SyncStatusCancelled   SyncStatus = "cancelled"
	SyncStatusRateLimited SyncStatus = "rateLimited"
)

// UserLibrary is one user's linkage to one external platform account.
// It owns its UserGames exclusively; deleting a library cascades to them.
type UserLibrary struct {
	BaseUUIDModel
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_library_unique,unique,priority:1" json:"userId"`
	PlatformID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_library_unique,unique,priority:2" json:"platformId"`
	Platform        *Platform      `gorm:"foreignKey:PlatformID"                 json:"platform,omitempty"`
	UserIdentifier  string         `gorm:"type:varchar(255);not null;index"      json:"userIdentifier"`
	DisplayName     string         `gorm:"type:varchar(255)"                     json:"displayName"`
	Credentials     datatypes.JSON `gorm:"type:jsonb"                            json:"-"`
	SyncEnabled     bool           `gorm:"not null;default:true"                 json:"syncEnabled"`
	SyncStatus      SyncStatus     `gorm:"type:varchar(32);not null;default:'idle';index" json:"syncStatus"`
	SyncError       *string        `gorm:"type:text"                             json:"syncError,omitempty"`
	SyncPosition    datatypes.JSON `gorm:"type:jsonb"                            json:"syncPosition,omitempty"`
	LastSyncAt      *time.Time     `                                             json:"lastSyncAt,omitempty"`
}

func (UserLibrary) TableName() string {
	return "user_libraries"
}

// MarkSyncing transitions the library into an active sync state.
func (l *UserLibrary) MarkSyncing() {
	l.SyncStatus = SyncStatusSyncing
	l.SyncError = nil
}

// MarkCompleted records a successful sync and clears any prior error.
func (l *UserLibrary) MarkCompleted(at time.Time) {
	l.SyncStatus = SyncStatusCompleted
	l.SyncError = nil
	l.LastSyncAt = &at
}

// MarkFailed records a terminal failure; the core does not retry automatically.
func (l *UserLibrary) MarkFailed(reason string) {
	l.SyncStatus = SyncStatusFailed
	l.SyncError = &reason
}

// MarkCancelled records an operator-initiated cancellation.
func (l *UserLibrary) MarkCancelled() {
	l.SyncStatus = SyncStatusCancelled
}

// MarkRateLimited records a transient rate-limit stall; retried by JQ later.
func (l *UserLibrary) MarkRateLimited(reason string) {
	l.SyncStatus = SyncStatusRateLimited
	l.SyncError = &reason
}

func (l *UserLibrary) IsSyncing() bool {
	return l.SyncStatus == SyncStatusSyncing || l.SyncStatus == SyncStatusStarting
}
