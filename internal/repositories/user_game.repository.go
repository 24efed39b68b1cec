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

const (
	USER_GAME_BATCH_SIZE = 500
)

type UserGameRepository interface {
	GetByLibraryAndGame(ctx context.Context, libraryID, gameID uuid.UUID) (*UserGame, error)
	ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]*UserGame, error)
	UpsertBatch(ctx context.Context, userGames []*UserGame) (affected int, err error)
	MarkUnseenAsUnowned(ctx context.Context, libraryID uuid.UUID, seenGameIDs []uuid.UUID) (delisted int, err error)
}

type userGameRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUserGameRepository(db database.DB) UserGameRepository {
	return &userGameRepository{
		db:  db,
		log: logger.New("userGameRepository"),
	}
}

func (r *userGameRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *userGameRepository) GetByLibraryAndGame(ctx context.Context, libraryID, gameID uuid.UUID) (*UserGame, error) {
	log := r.log.Function("GetByLibraryAndGame")

	var userGame UserGame
	err := r.getDB(ctx).
		Preload("Game").
		First(&userGame, "library_id = ? AND game_id = ?", libraryID, gameID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get user game", err, "libraryID", libraryID, "gameID", gameID)
	}

	return &userGame, nil
}

func (r *userGameRepository) ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]*UserGame, error) {
	log := r.log.Function("ListByLibrary")

	var userGames []*UserGame
	if err := r.getDB(ctx).Preload("Game").Where("library_id = ?", libraryID).Find(&userGames).Error; err != nil {
		return nil, log.Err("failed to list user games", err, "libraryID", libraryID)
	}

	return userGames, nil
}

func (r *userGameRepository) UpsertBatch(ctx context.Context, userGames []*UserGame) (int, error) {
	log := r.log.Function("UpsertBatch")

	if len(userGames) == 0 {
		return 0, nil
	}

	var totalAffected int
	for i := 0; i < len(userGames); i += USER_GAME_BATCH_SIZE {
		end := i + USER_GAME_BATCH_SIZE
		if end > len(userGames) {
			end = len(userGames)
		}

		batch := userGames[i:end]
		result := r.getDB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "library_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"platform_game_id", "owned", "owned_at", "total_playtime_minutes",
				"first_played_at", "last_played_at", "game_status", "platform_data",
				"last_synced_at", "content_hash", "updated_at",
			}),
		}).CreateInBatches(batch, USER_GAME_BATCH_SIZE)

		if result.Error != nil {
			return totalAffected, log.Err("failed to upsert user game batch", result.Error, "batchStart", i, "batchEnd", end)
		}

		totalAffected += int(result.RowsAffected)
	}

	return totalAffected, nil
}

// MarkUnseenAsUnowned soft-delists library rows absent from the latest full
// sync pass instead of deleting them, preserving playtime history.
func (r *userGameRepository) MarkUnseenAsUnowned(ctx context.Context, libraryID uuid.UUID, seenGameIDs []uuid.UUID) (int, error) {
	log := r.log.Function("MarkUnseenAsUnowned")

	query := r.getDB(ctx).Model(&UserGame{}).
		Where("library_id = ? AND owned = true", libraryID)

	if len(seenGameIDs) > 0 {
		query = query.Where("game_id NOT IN ?", seenGameIDs)
	}

	result := query.Update("owned", false)
	if result.Error != nil {
		return 0, log.Err("failed to soft-delist unseen games", result.Error, "libraryID", libraryID)
	}

	return int(result.RowsAffected), nil
}
