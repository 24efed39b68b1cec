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
	ACHIEVEMENT_BATCH_SIZE = 500
)

type AchievementRepository interface {
	UpsertBatch(ctx context.Context, achievements []*Achievement) (affected int, err error)
	ListByGame(ctx context.Context, gameID uuid.UUID) ([]*Achievement, error)
	UpsertUserAchievements(ctx context.Context, userAchievements []*UserAchievement) (affected int, err error)
	ListByUserGame(ctx context.Context, userGameID uuid.UUID) ([]*UserAchievement, error)
}

type achievementRepository struct {
	db  database.DB
	log logger.Logger
}

func NewAchievementRepository(db database.DB) AchievementRepository {
	return &achievementRepository{
		db:  db,
		log: logger.New("achievementRepository"),
	}
}

func (r *achievementRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *achievementRepository) UpsertBatch(ctx context.Context, achievements []*Achievement) (int, error) {
	log := r.log.Function("UpsertBatch")

	if len(achievements) == 0 {
		return 0, nil
	}

	var totalAffected int
	for i := 0; i < len(achievements); i += ACHIEVEMENT_BATCH_SIZE {
		end := i + ACHIEVEMENT_BATCH_SIZE
		if end > len(achievements) {
			end = len(achievements)
		}

		batch := achievements[i:end]
		result := r.getDB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}, {Name: "platform_id"}, {Name: "platform_achievement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "description", "icon_url", "points", "rarity", "hidden", "updated_at",
			}),
		}).CreateInBatches(batch, ACHIEVEMENT_BATCH_SIZE)

		if result.Error != nil {
			return totalAffected, log.Err("failed to upsert achievement batch", result.Error, "batchStart", i, "batchEnd", end)
		}

		totalAffected += int(result.RowsAffected)
	}

	return totalAffected, nil
}

func (r *achievementRepository) ListByGame(ctx context.Context, gameID uuid.UUID) ([]*Achievement, error) {
	log := r.log.Function("ListByGame")

	var achievements []*Achievement
	if err := r.getDB(ctx).Where("game_id = ?", gameID).Find(&achievements).Error; err != nil {
		return nil, log.Err("failed to list achievements for game", err, "gameID", gameID)
	}

	return achievements, nil
}

func (r *achievementRepository) UpsertUserAchievements(ctx context.Context, userAchievements []*UserAchievement) (int, error) {
	log := r.log.Function("UpsertUserAchievements")

	if len(userAchievements) == 0 {
		return 0, nil
	}

	var totalAffected int
	for i := 0; i < len(userAchievements); i += ACHIEVEMENT_BATCH_SIZE {
		end := i + ACHIEVEMENT_BATCH_SIZE
		if end > len(userAchievements) {
			end = len(userAchievements)
		}

		batch := userAchievements[i:end]
		result := r.getDB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_game_id"}, {Name: "achievement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"unlocked_at", "progress_percent", "updated_at",
			}),
		}).CreateInBatches(batch, ACHIEVEMENT_BATCH_SIZE)

		if result.Error != nil {
			return totalAffected, log.Err("failed to upsert user achievement batch", result.Error, "batchStart", i, "batchEnd", end)
		}

		totalAffected += int(result.RowsAffected)
	}

	return totalAffected, nil
}

func (r *achievementRepository) ListByUserGame(ctx context.Context, userGameID uuid.UUID) ([]*UserAchievement, error) {
	log := r.log.Function("ListByUserGame")

	var userAchievements []*UserAchievement
	if err := r.getDB(ctx).Preload("Achievement").Where("user_game_id = ?", userGameID).Find(&userAchievements).Error; err != nil {
		return nil, log.Err("failed to list user achievements", err, "userGameID", userGameID)
	}

	return userAchievements, nil
}
