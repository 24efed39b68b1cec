package seed

import (
	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seed populates a development database with a sample library so the HTTP
// and WebSocket surfaces have something to return without a real sync run.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	var steam Platform
	if err := db.First(&steam, "slug = ?", "steam").Error; err != nil {
		log.Info("steam platform not present, skipping library seed")
		return nil
	}

	library := UserLibrary{
		UserID:         constants.SystemUserID,
		PlatformID:     steam.ID,
		UserIdentifier: "76561198000000000",
		DisplayName:    "Sample Steam Library",
		Credentials:    datatypes.JSON(`{"steamId":"76561198000000000"}`),
		SyncEnabled:    true,
		SyncStatus:     SyncStatusIdle,
	}

	var existing UserLibrary
	err := db.First(&existing, "platform_id = ? AND user_identifier = ?", library.PlatformID, library.UserIdentifier).Error
	if err == nil {
		log.Info("sample library already exists")
		return nil
	}

	log.Info("seeding sample library", "displayName", library.DisplayName)
	if err := db.Create(&library).Error; err != nil {
		return log.Err("failed to create sample library", err)
	}

	return nil
}
