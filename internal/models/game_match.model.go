package models

import "github.com/google/uuid"

type MatchMethod string

const (
	MatchMethodTitleExact MatchMethod = "titleExact"
	MatchMethodTitleFuzzy MatchMethod = "titleFuzzy"
	MatchMethodExternalID MatchMethod = "externalId"
	MatchMethodManual     MatchMethod = "manual"
)

// GameMatch is a weighted, undirected edge in the graph GIR builds across
// Games discovered to refer to the same title from different platforms.
// Oriented by PrimaryGameID < MatchedGameID (lexicographic on the UUID
// string form) so the pair is always stored once.
type GameMatch struct {
	BaseUUIDModel
	PrimaryGameID uuid.UUID   `gorm:"type:uuid;not null;index:idx_game_match_unique,unique,priority:1" json:"primaryGameId"`
	MatchedGameID uuid.UUID   `gorm:"type:uuid;not null;index:idx_game_match_unique,unique,priority:2" json:"matchedGameId"`
	Confidence    float64     `gorm:"type:numeric(4,3);not null"       json:"confidence"`
	Method        MatchMethod `gorm:"type:varchar(16);not null"        json:"method"`
	Verified      bool        `gorm:"not null;default:false"           json:"verified"`
}

func (GameMatch) TableName() string {
	return "game_matches"
}

// OrderedPair returns (primary, matched) respecting the storage orientation
// convention primary < matched, so callers never have to check both sides
// of the edge table.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
