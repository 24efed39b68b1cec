package initialize

import (
	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func InitializeTables(db *gorm.DB, config config.Config, log logger.Logger) error {
	log = log.Function("InitializeTables")
	log.Info("Initializing essential production data")

	if err := initializePlatforms(db, log); err != nil {
		return log.Err("failed to initialize platforms", err)
	}

	log.Info("Table initialization complete")
	return nil
}

// initializePlatforms seeds the fixed set of storefronts this core knows how
// to sync against. Every entry here needs a matching adapter registered in
// app.New's adapters map or library creation against it will never sync.
func initializePlatforms(db *gorm.DB, log logger.Logger) error {
	log.Info("Initializing platform reference data")

	platforms := getPlatformsData()

	for _, platform := range platforms {
		var existing Platform
		if err := db.First(&existing, "slug = ?", platform.Slug).Error; err == nil {
			log.Debug("Platform already exists", "slug", platform.Slug)
			continue
		}
		log.Info("Initializing platform", "slug", platform.Slug)
		if err := db.Create(&platform).Error; err != nil {
			return log.Err("failed to create platform", err, "slug", platform.Slug)
		}
	}

	log.Info("Platform reference data initialized", "count", len(platforms))
	return nil
}

func getPlatformsData() []Platform {
	steamCredentialsSchema := datatypes.JSON(`{
		"type": "object",
		"properties": {
			"steamId": {"type": "string", "description": "64-bit SteamID or vanity URL"}
		},
		"required": ["steamId"]
	}`)

	return []Platform{
		{
			Slug:              "steam",
			Name:              "Steam",
			RequiresAuth:      false,
			CredentialsSchema: steamCredentialsSchema,
		},
	}
}
