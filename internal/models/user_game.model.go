package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GameStatus string

const (
	GameStatusUnplayed  GameStatus = "unplayed"
	GameStatusPlaying   GameStatus = "playing"
	GameStatusCompleted GameStatus = "completed"
	GameStatusAbandoned GameStatus = "abandoned"
	GameStatusWishlist  GameStatus = "wishlist"
)

// UserGame is the per-library ownership/playtime fact linking a library to a
// catalog Game. It is owned exclusively by its UserLibrary.
type UserGame struct {
	BaseUUIDModel
	LibraryID             uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_game_library_game,unique,priority:1" json:"libraryId"`
	GameID                uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_game_library_game,unique,priority:2" json:"gameId"`
	Game                  *Game          `gorm:"foreignKey:GameID"                     json:"game,omitempty"`
	PlatformGameID        *string        `gorm:"type:varchar(128);index"               json:"platformGameId,omitempty"`
	Owned                 bool           `gorm:"not null;default:true"                 json:"owned"`
	OwnedAt               *time.Time     `                                             json:"ownedAt,omitempty"`
	TotalPlaytimeMinutes  int            `gorm:"not null;default:0"                    json:"totalPlaytimeMinutes"`
	FirstPlayedAt         *time.Time     `                                             json:"firstPlayedAt,omitempty"`
	LastPlayedAt          *time.Time     `                                             json:"lastPlayedAt,omitempty"`
	GameStatus            GameStatus     `gorm:"type:varchar(16);not null;default:'unplayed'" json:"gameStatus"`
	UserRating            *int           `                                             json:"userRating,omitempty"`
	UserNotes             *string        `gorm:"type:text"                             json:"userNotes,omitempty"`
	IsFavorite            bool           `gorm:"not null;default:false"                json:"isFavorite"`
	PlatformData          datatypes.JSON `gorm:"type:jsonb"                            json:"platformData,omitempty"`
	LastSyncedAt          time.Time      `gorm:"not null"                              json:"lastSyncedAt"`
	ContentHash           string         `gorm:"type:varchar(64);index"                json:"-"`
}

func (UserGame) TableName() string {
	return "user_games"
}

// ApplyPlaytime enforces the non-decreasing-playtime invariant: a lower
// remote value is still recorded (platform data is authoritative) but the
// caller should flag the row for the sync operation's error log.
func (ug *UserGame) ApplyPlaytime(remoteMinutes int) (flagged bool) {
	if remoteMinutes < ug.TotalPlaytimeMinutes {
		flagged = true
	}
	ug.TotalPlaytimeMinutes = remoteMinutes
	return flagged
}

func (ug *UserGame) GetHashableFields() map[string]any {
	return map[string]any{
		"owned":                ug.Owned,
		"totalPlaytimeMinutes": ug.TotalPlaytimeMinutes,
		"gameStatus":           string(ug.GameStatus),
		"isFavorite":           ug.IsFavorite,
	}
}

func (ug *UserGame) SetContentHash(hash string) { ug.ContentHash = hash }
func (ug *UserGame) GetContentHash() string     { return ug.ContentHash }
