package repositories

import (
	"context"

	contextutil "github.com/gamedjinn/sync/internal/context"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	GAME_BATCH_SIZE = 500
)

type GameRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Game, error)
	GetBySlug(ctx context.Context, slug string) (*Game, error)
	FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]*Game, error)
	FindFuzzyByTitle(ctx context.Context, normalizedTitle string, threshold float64, limit int) ([]FuzzyGameMatch, error)
	FindByExternalIDs(ctx context.Context, externalIDs map[string]string) ([]*Game, error)
	// UpsertBatch returns the total number of rows written as affected;
	// inserts and conflict-updates are not counted apart, and updated is
	// always 0.
	UpsertBatch(ctx context.Context, games []*Game) (affected int, updated int, err error)
	Search(ctx context.Context, query string, limit, offset int) ([]*Game, error)
	List(ctx context.Context, limit, offset int) ([]*Game, int64, error)
}

// FuzzyGameMatch pairs a candidate Game with the trigram similarity score
// that surfaced it, so GIR can record the match's actual confidence rather
// than a fixed constant.
type FuzzyGameMatch struct {
	Game  *Game
	Score float64
}

type gameRepository struct {
	db  database.DB
	log logger.Logger
}

func NewGameRepository(db database.DB) GameRepository {
	return &gameRepository{
		db:  db,
		log: logger.New("gameRepository"),
	}
}

func (r *gameRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *gameRepository) GetByID(ctx context.Context, id uuid.UUID) (*Game, error) {
	log := r.log.Function("GetByID")

	var game Game
	if err := r.getDB(ctx).First(&game, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get game by ID", err, "id", id)
	}

	return &game, nil
}

func (r *gameRepository) GetBySlug(ctx context.Context, slug string) (*Game, error) {
	log := r.log.Function("GetBySlug")

	var game Game
	if err := r.getDB(ctx).First(&game, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get game by slug", err, "slug", slug)
	}

	return &game, nil
}

func (r *gameRepository) FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]*Game, error) {
	log := r.log.Function("FindByNormalizedTitle")

	var games []*Game
	if err := r.getDB(ctx).Where("normalized_title = ?", normalizedTitle).Find(&games).Error; err != nil {
		return nil, log.Err("failed to find games by normalized title", err, "normalizedTitle", normalizedTitle)
	}

	return games, nil
}

// FindFuzzyByTitle grounds GIR's TitleFuzzy strategy on pg_trgm's similarity
// operator rather than an in-process string-distance implementation, so the
// comparison runs as a single indexed query against the whole catalog.
func (r *gameRepository) FindFuzzyByTitle(ctx context.Context, normalizedTitle string, threshold float64, limit int) ([]FuzzyGameMatch, error) {
	log := r.log.Function("FindFuzzyByTitle")

	type row struct {
		Game
		Score float64
	}

	var rows []row
	err := r.getDB(ctx).Model(&Game{}).
		Select("games.*, similarity(normalized_title, ?) AS score", normalizedTitle).
		Where("similarity(normalized_title, ?) >= ?", normalizedTitle, threshold).
		Order("score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, log.Err("failed to fuzzy-match games by title", err, "normalizedTitle", normalizedTitle)
	}

	matches := make([]FuzzyGameMatch, len(rows))
	for i := range rows {
		game := rows[i].Game
		matches[i] = FuzzyGameMatch{Game: &game, Score: rows[i].Score}
	}

	return matches, nil
}

// FindByExternalIDs looks games up by storefront identifier directly
// against the external_ids jsonb column, independent of title — the whole
// point of matching by external ID rather than a (renameable) title string.
// externalIDs' keys are the ExternalIDs struct's json tags (e.g.
// "steamAppId"); any key/value pair matching is enough to return a game.
func (r *gameRepository) FindByExternalIDs(ctx context.Context, externalIDs map[string]string) ([]*Game, error) {
	log := r.log.Function("FindByExternalIDs")

	query := r.getDB(ctx).Model(&Game{})
	matched := false
	for key, value := range externalIDs {
		if value == "" {
			continue
		}
		cond := datatypes.JSONQuery("external_ids").Equals(value, key)
		if !matched {
			query = query.Where(cond)
			matched = true
		} else {
			query = query.Or(cond)
		}
	}
	if !matched {
		return nil, nil
	}

	var games []*Game
	if err := query.Find(&games).Error; err != nil {
		return nil, log.Err("failed to find games by external id", err)
	}

	return games, nil
}

func (r *gameRepository) UpsertBatch(ctx context.Context, games []*Game) (int, int, error) {
	log := r.log.Function("UpsertBatch")

	if len(games) == 0 {
		return 0, 0, nil
	}

	var totalAffected int
	for i := 0; i < len(games); i += GAME_BATCH_SIZE {
		end := i + GAME_BATCH_SIZE
		if end > len(games) {
			end = len(games)
		}

		batch := games[i:end]
		// Conflict target is id, not slug: GIR has already decided each row's
		// identity (existing Game reused vs a freshly minted one), so this is
		// an upsert-by-identity rather than a dedup-by-business-key.
		result := r.getDB(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "normalized_title", "description", "release_date",
				"developer", "publisher", "genres", "tags", "platforms_available",
				"esrb_rating", "esrb_descriptors", "pegi_rating", "metacritic_score",
				"steam_score", "cover_image_url", "screenshots", "videos",
				"external_ids", "playtime_main_hours", "playtime_completionist_hours",
				"content_hash", "updated_at",
			}),
		}).CreateInBatches(batch, GAME_BATCH_SIZE)

		if result.Error != nil {
			return totalAffected, 0, log.Err("failed to upsert game batch", result.Error, "batchStart", i, "batchEnd", end)
		}

		totalAffected += int(result.RowsAffected)
		log.Info("Upserted game batch", "batchStart", i, "batchEnd", end, "affected", result.RowsAffected)
	}

	return totalAffected, 0, nil
}

func (r *gameRepository) Search(ctx context.Context, query string, limit, offset int) ([]*Game, error) {
	log := r.log.Function("Search")

	var games []*Game
	err := r.getDB(ctx).
		Where("search_vector @@ plainto_tsquery('simple', ?)", query).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "ts_rank(search_vector, plainto_tsquery('simple', ?)) DESC, release_date DESC, title ASC",
			Vars:               []interface{}{query},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Offset(offset).
		Find(&games).Error
	if err != nil {
		return nil, log.Err("failed to search games", err, "query", query)
	}

	return games, nil
}

// List returns the catalog unfiltered, newest release first, for the plain
// browse endpoint (as opposed to Search's full-text-query variant).
func (r *gameRepository) List(ctx context.Context, limit, offset int) ([]*Game, int64, error) {
	log := r.log.Function("List")

	var games []*Game
	var total int64

	if err := r.getDB(ctx).Model(&Game{}).Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count games", err)
	}

	err := r.getDB(ctx).
		Order("release_date DESC, title ASC").
		Limit(limit).
		Offset(offset).
		Find(&games).Error
	if err != nil {
		return nil, 0, log.Err("failed to list games", err)
	}

	return games, total, nil
}
