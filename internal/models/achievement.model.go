package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Achievement is a platform-defined achievement/trophy for a catalog Game.
type Achievement struct {
	BaseUUIDModel
	GameID                uuid.UUID        `gorm:"type:uuid;not null;index:idx_achievement_unique,unique,priority:1" json:"gameId"`
	PlatformID            uuid.UUID        `gorm:"type:uuid;not null;index:idx_achievement_unique,unique,priority:2" json:"platformId"`
	PlatformAchievementID string           `gorm:"type:varchar(255);not null;index:idx_achievement_unique,unique,priority:3" json:"platformAchievementId"`
	Title                 string           `gorm:"type:varchar(255);not null" json:"title"`
	Description           *string          `gorm:"type:text"                  json:"description,omitempty"`
	IconURL               *string          `gorm:"type:text"                  json:"iconUrl,omitempty"`
	Points                int              `gorm:"not null;default:0"         json:"points"`
	Rarity                *decimal.Decimal `gorm:"type:numeric(5,2)"          json:"rarity,omitempty"`
	Hidden                bool             `gorm:"not null;default:false"     json:"hidden"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement records a single user's progress on an Achievement.
type UserAchievement struct {
	BaseUUIDModel
	UserGameID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_achievement_unique,unique,priority:1" json:"userGameId"`
	AchievementID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_achievement_unique,unique,priority:2" json:"achievementId"`
	Achievement     *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	UnlockedAt      *time.Time `                                 json:"unlockedAt,omitempty"`
	ProgressPercent int        `gorm:"not null;default:0"        json:"progressPercent"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
