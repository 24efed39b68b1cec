package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ESRBRating string

const (
	ESRBEveryone       ESRBRating = "E"
	ESRBEveryone10Plus ESRBRating = "E10+"
	ESRBTeen           ESRBRating = "T"
	ESRBMature         ESRBRating = "M"
	ESRBAdultsOnly     ESRBRating = "AO"
	ESRBRatingPending  ESRBRating = "RP"
)

// ExternalIDs holds cross-platform storefront identifiers for a Game, stored
// as JSONB so new platforms never require a migration.
type ExternalIDs struct {
	SteamAppID *string `json:"steamAppId,omitempty"`
	GOGID      *string `json:"gogId,omitempty"`
	EpicID     *string `json:"epicId,omitempty"`
	XboxID     *string `json:"xboxId,omitempty"`
	IGDBID     *string `json:"igdbId,omitempty"`
}

// Game is the universal, platform-independent catalog entity. It is shared
// across every UserLibrary and is never deleted when a library is removed.
type Game struct {
	BaseUUIDModel
	Title                      string         `gorm:"type:varchar(512);not null;index"   json:"title"`
	NormalizedTitle            string         `gorm:"type:varchar(512);not null;index"   json:"normalizedTitle"`
	Slug                       *string        `gorm:"type:varchar(512);uniqueIndex"      json:"slug,omitempty"`
	Description                *string        `gorm:"type:text"                          json:"description,omitempty"`
	ReleaseDate                *time.Time     `                                           json:"releaseDate,omitempty"`
	Developer                  *string        `gorm:"type:varchar(255)"                  json:"developer,omitempty"`
	Publisher                  *string        `gorm:"type:varchar(255)"                  json:"publisher,omitempty"`
	Genres                     pq.StringArray `gorm:"type:text[]"                        json:"genres,omitempty"`
	Tags                       pq.StringArray `gorm:"type:text[]"                        json:"tags,omitempty"`
	PlatformsAvailable         pq.StringArray `gorm:"type:text[]"                        json:"platformsAvailable,omitempty"`
	ESRBRating                 *ESRBRating    `gorm:"type:varchar(8)"                    json:"esrbRating,omitempty"`
	ESRBDescriptors            pq.StringArray `gorm:"type:text[]"                        json:"esrbDescriptors,omitempty"`
	PEGIRating                 *int           `                                           json:"pegiRating,omitempty"`
	MetacriticScore            *int           `                                           json:"metacriticScore,omitempty"`
	SteamScore                 *int           `                                           json:"steamScore,omitempty"`
	CoverImageURL              *string        `gorm:"type:text"                          json:"coverImageUrl,omitempty"`
	Screenshots                pq.StringArray `gorm:"type:text[]"                        json:"screenshots,omitempty"`
	Videos                     pq.StringArray `gorm:"type:text[]"                        json:"videos,omitempty"`
	ExternalIDs                datatypes.JSONType[ExternalIDs] `gorm:"type:jsonb"        json:"externalIds"`
	PlaytimeMainHours          *float64       `                                           json:"playtimeMainHours,omitempty"`
	PlaytimeCompletionistHours *float64       `                                           json:"playtimeCompletionistHours,omitempty"`
	SearchVector               string         `gorm:"type:tsvector;index:,type:gin"      json:"-"`
	ContentHash                string         `gorm:"type:varchar(64);index"             json:"-"`
}

func (Game) TableName() string {
	return "games"
}

// GetHashableFields implements utils.Hashable so CatalogService can detect
// unchanged rows without a per-field diff on every upsert.
func (g *Game) GetHashableFields() map[string]any {
	return map[string]any{
		"title":       g.Title,
		"description":  derefString(g.Description),
		"developer":    derefString(g.Developer),
		"publisher":    derefString(g.Publisher),
		"coverImageURL": derefString(g.CoverImageURL),
	}
}

func (g *Game) SetContentHash(hash string) { g.ContentHash = hash }
func (g *Game) GetContentHash() string     { return g.ContentHash }

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
