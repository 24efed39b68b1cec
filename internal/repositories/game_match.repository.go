package repositories

import (
	"context"

	contextutil "github.com/gamedjinn/sync/internal/context"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GameMatchRepository interface {
	Upsert(ctx context.Context, match *GameMatch) (*GameMatch, error)
	ListForGame(ctx context.Context, gameID uuid.UUID) ([]*GameMatch, error)
}

type gameMatchRepository struct {
	db  database.DB
	log logger.Logger
}

func NewGameMatchRepository(db database.DB) GameMatchRepository {
	return &gameMatchRepository{
		db:  db,
		log: logger.New("gameMatchRepository"),
	}
}

func (r *gameMatchRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// Upsert stores a GameMatch edge, orienting primary/matched per
// OrderedPair before the unique index is consulted.
func (r *gameMatchRepository) Upsert(ctx context.Context, match *GameMatch) (*GameMatch, error) {
	log := r.log.Function("Upsert")

	match.PrimaryGameID, match.MatchedGameID = OrderedPair(match.PrimaryGameID, match.MatchedGameID)

	result := r.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "primary_game_id"}, {Name: "matched_game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"confidence", "method", "verified", "updated_at",
		}),
	}).Create(match)

	if result.Error != nil {
		return nil, log.Err("failed to upsert game match", result.Error, "primaryGameID", match.PrimaryGameID, "matchedGameID", match.MatchedGameID)
	}

	return match, nil
}

func (r *gameMatchRepository) ListForGame(ctx context.Context, gameID uuid.UUID) ([]*GameMatch, error) {
	log := r.log.Function("ListForGame")

	var matches []*GameMatch
	err := r.getDB(ctx).
		Where("primary_game_id = ? OR matched_game_id = ?", gameID, gameID).
		Find(&matches).Error
	if err != nil {
		return nil, log.Err("failed to list game matches", err, "gameID", gameID)
	}

	return matches, nil
}
