package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/platforms"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func apperrLibraryExists(existingID uuid.UUID) *apperr.Error {
	return apperr.Conflict("library_exists", "a library for this platform already exists").
		WithDetails(map[string]any{"libraryId": existingID})
}

func apperrGameNotFound(gameID uuid.UUID) *apperr.Error {
	return apperr.NotFound("game_not_found", fmt.Sprintf("game %s not found", gameID))
}

// UpsertCounts is CS.UpsertGamesBatch's {added, updated, unchanged} result
// per spec §4.3.
type UpsertCounts struct {
	Added     int
	Updated   int
	Unchanged int
	GameIDs   []uuid.UUID
}

type GameSearchFilters struct {
	LibraryID *uuid.UUID
	OwnedOnly bool
	Statuses  []GameStatus
}

// CatalogService is CS: durable persistence, idempotent upsert, identity
// resolution via GIR, and full-text search over the catalog.
type CatalogService struct {
	log          logger.Logger
	platforms    repositories.PlatformRepository
	libraries    repositories.UserLibraryRepository
	games        repositories.GameRepository
	userGames    repositories.UserGameRepository
	achievements repositories.AchievementRepository
	syncOps      repositories.SyncOperationRepository
	gir          *IdentityResolverService
}

func NewCatalogService(
	platformRepo repositories.PlatformRepository,
	libraryRepo repositories.UserLibraryRepository,
	gameRepo repositories.GameRepository,
	userGameRepo repositories.UserGameRepository,
	achievementRepo repositories.AchievementRepository,
	syncOpRepo repositories.SyncOperationRepository,
	gir *IdentityResolverService,
) *CatalogService {
	return &CatalogService{
		log:          logger.New("CatalogService"),
		platforms:    platformRepo,
		libraries:    libraryRepo,
		games:        gameRepo,
		userGames:    userGameRepo,
		achievements: achievementRepo,
		syncOps:      syncOpRepo,
		gir:          gir,
	}
}

func (s *CatalogService) UpsertPlatform(ctx context.Context, platform *Platform) (*Platform, error) {
	existing, err := s.platforms.GetBySlug(ctx, platform.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.platforms.Create(ctx, platform)
}

func (s *CatalogService) UpsertLibrary(ctx context.Context, library *UserLibrary) (*UserLibrary, error) {
	existing, err := s.libraries.GetByUserAndPlatform(ctx, library.UserID, library.PlatformID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrLibraryExists(existing.ID)
	}
	return s.libraries.Create(ctx, library)
}

func (s *CatalogService) DeleteLibrary(ctx context.Context, libraryID uuid.UUID) error {
	return s.libraries.Delete(ctx, libraryID)
}

// UpsertGamesBatch resolves each incoming platform game to a catalog Game
// via GIR, upserts the Game and UserGame rows, and reports the
// {added, updated, unchanged} contract of spec §4.3.
func (s *CatalogService) UpsertGamesBatch(ctx context.Context, libraryID uuid.UUID, incoming []platforms.UserGameData) (UpsertCounts, error) {
	log := s.log.Function("UpsertGamesBatch")

	var counts UpsertCounts
	if len(incoming) == 0 {
		return counts, nil
	}

	gamesToUpsert := make([]*Game, 0, len(incoming))
	resolvedGameIDs := make([]*Game, 0, len(incoming))
	pendingMatches := make(map[uuid.UUID]*PendingGameMatch, len(incoming))

	for _, item := range incoming {
		resolved, isNew, pendingMatch, err := s.gir.Resolve(ctx, ResolveInput{
			Title:       item.Game.Title,
			Developer:   item.Game.Developer,
			Publisher:   item.Game.Publisher,
			ExternalIDs: item.Game.ExternalIDs,
		})
		if err != nil {
			return counts, log.Err("failed to resolve game identity", err, "libraryID", libraryID, "title", item.Game.Title)
		}

		applyGameData(resolved, item.Game)
		hash, _ := utils.GenerateEntityHash(resolved)
		resolved.SetContentHash(hash)

		if isNew {
			resolved.ID = uuid.Must(uuid.NewV7())
		}
		if pendingMatch != nil {
			pendingMatches[resolved.ID] = pendingMatch
		}

		gamesToUpsert = append(gamesToUpsert, resolved)
		resolvedGameIDs = append(resolvedGameIDs, resolved)
	}

	if _, _, err := s.games.UpsertBatch(ctx, gamesToUpsert); err != nil {
		return counts, log.Err("failed to upsert games", err, "libraryID", libraryID)
	}

	for matchedGameID, pending := range pendingMatches {
		if _, err := s.gir.MergeGames(ctx, pending.PrimaryGameID, matchedGameID, pending.Method, pending.Confidence); err != nil {
			return counts, log.Err("failed to record game match", err, "libraryID", libraryID, "matchedGameID", matchedGameID)
		}
	}

	now := time.Now().UTC()
	userGamesToUpsert := make([]*UserGame, 0, len(incoming))
	for i, item := range incoming {
		game := resolvedGameIDs[i]

		existing, err := s.userGames.GetByLibraryAndGame(ctx, libraryID, game.ID)
		if err != nil {
			return counts, log.Err("failed to read existing user game", err, "libraryID", libraryID, "gameID", game.ID)
		}

		userGame := existing
		flaggedForReview := false
		if userGame == nil {
			userGame = &UserGame{LibraryID: libraryID, GameID: game.ID}
		} else {
			flaggedForReview = userGame.ApplyPlaytime(item.TotalPlaytimeMinutes)
		}
		if existing == nil {
			userGame.TotalPlaytimeMinutes = item.TotalPlaytimeMinutes
		}

		userGame.Owned = item.Owned
		userGame.OwnedAt = item.OwnedAt
		userGame.FirstPlayedAt = item.FirstPlayedAt
		userGame.LastPlayedAt = item.LastPlayedAt
		userGame.LastSyncedAt = now

		hash, _ := utils.GenerateEntityHash(userGame)
		unchanged := existing != nil && existing.GetContentHash() == hash && !flaggedForReview
		userGame.SetContentHash(hash)

		if existing == nil {
			counts.Added++
		} else if unchanged {
			counts.Unchanged++
		} else {
			counts.Updated++
		}

		if flaggedForReview {
			log.Warn("playtime regression observed, flagging for review", "libraryID", libraryID, "gameID", game.ID)
		}

		userGamesToUpsert = append(userGamesToUpsert, userGame)
	}

	if _, err := s.userGames.UpsertBatch(ctx, userGamesToUpsert); err != nil {
		return counts, log.Err("failed to upsert user games", err, "libraryID", libraryID)
	}

	counts.GameIDs = make([]uuid.UUID, len(resolvedGameIDs))
	for i, game := range resolvedGameIDs {
		counts.GameIDs[i] = game.ID
	}

	return counts, nil
}

func applyGameData(game *Game, data platforms.GameData) {
	game.Title = data.Title
	if data.Developer != nil {
		game.Developer = data.Developer
	}
	if data.Publisher != nil {
		game.Publisher = data.Publisher
	}
	if data.Description != nil {
		game.Description = data.Description
	}
	if data.ReleaseDate != nil {
		game.ReleaseDate = data.ReleaseDate
	}
	if len(data.Genres) > 0 {
		game.Genres = data.Genres
	}
	if len(data.Tags) > 0 {
		game.Tags = data.Tags
	}
	if data.CoverImageURL != nil {
		game.CoverImageURL = data.CoverImageURL
	}
	if len(data.Screenshots) > 0 {
		game.Screenshots = data.Screenshots
	}
	if data.MetacriticScore != nil {
		game.MetacriticScore = data.MetacriticScore
	}
	if data.PlatformScore != nil {
		game.SteamScore = data.PlatformScore
	}
	if data.PlaytimeMainHours != nil {
		game.PlaytimeMainHours = data.PlaytimeMainHours
	}
	if steamID, ok := data.ExternalIDs["steamAppId"]; ok {
		game.ExternalIDs.Data.SteamAppID = &steamID
	}
}

// SyncGameAchievements upserts a game's achievement schema as reported by
// its platform, then returns the game's full catalog of Achievement rows
// (including any pre-existing ones) so the caller can map platform IDs to
// the row IDs UserAchievement foreign-keys against.
func (s *CatalogService) SyncGameAchievements(ctx context.Context, gameID, platformID uuid.UUID, defs []platforms.AchievementData) ([]*Achievement, error) {
	log := s.log.Function("SyncGameAchievements")

	if len(defs) > 0 {
		achievements := make([]*Achievement, 0, len(defs))
		for _, d := range defs {
			var rarity *decimal.Decimal
			if d.RarityPercent != nil {
				r := decimal.NewFromFloat(*d.RarityPercent)
				rarity = &r
			}
			achievements = append(achievements, &Achievement{
				GameID:                gameID,
				PlatformID:            platformID,
				PlatformAchievementID: d.PlatformAchievementID,
				Title:                 d.Title,
				Description:           d.Description,
				IconURL:               d.IconURL,
				Points:                d.Points,
				Rarity:                rarity,
				Hidden:                d.Hidden,
			})
		}
		if _, err := s.achievements.UpsertBatch(ctx, achievements); err != nil {
			return nil, log.Err("failed to upsert achievement schema", err, "gameID", gameID)
		}
	}

	return s.achievements.ListByGame(ctx, gameID)
}

// SyncUserAchievements records the library user's unlock state against catalog,
// resolving each unlocked platform achievement ID to its Achievement row ID.
func (s *CatalogService) SyncUserAchievements(ctx context.Context, userGameID uuid.UUID, catalog []*Achievement, unlocked []platforms.UserAchievementData) error {
	if len(unlocked) == 0 {
		return nil
	}

	byPlatformID := make(map[string]uuid.UUID, len(catalog))
	for _, a := range catalog {
		byPlatformID[a.PlatformAchievementID] = a.ID
	}

	records := make([]*UserAchievement, 0, len(unlocked))
	for _, u := range unlocked {
		achievementID, ok := byPlatformID[u.Achievement.PlatformAchievementID]
		if !ok {
			continue
		}
		records = append(records, &UserAchievement{
			UserGameID:      userGameID,
			AchievementID:   achievementID,
			UnlockedAt:      u.UnlockedAt,
			ProgressPercent: u.ProgressPercent,
		})
	}
	if len(records) == 0 {
		return nil
	}

	_, err := s.achievements.UpsertUserAchievements(ctx, records)
	return err
}

// SyncAchievementsForGame is the combined orchestration SW drives per game
// in a batch: sync the schema, then (if the user has unlocked anything and
// owns a UserGame row for this title) sync their unlock state against it.
func (s *CatalogService) SyncAchievementsForGame(ctx context.Context, libraryID, gameID, platformID uuid.UUID, defs []platforms.AchievementData, unlocked []platforms.UserAchievementData) error {
	catalog, err := s.SyncGameAchievements(ctx, gameID, platformID, defs)
	if err != nil {
		return err
	}
	if len(unlocked) == 0 {
		return nil
	}

	userGame, err := s.userGames.GetByLibraryAndGame(ctx, libraryID, gameID)
	if err != nil {
		return err
	}
	if userGame == nil {
		return nil
	}

	return s.SyncUserAchievements(ctx, userGame.ID, catalog, unlocked)
}

// MarkAbsentGamesUnowned soft-delists UserGame rows not present in the most
// recent full sync pass, per the gamesRemoved design decision in DESIGN.md.
func (s *CatalogService) MarkAbsentGamesUnowned(ctx context.Context, libraryID uuid.UUID, seenGameIDs []uuid.UUID) (int, error) {
	return s.userGames.MarkUnseenAsUnowned(ctx, libraryID, seenGameIDs)
}

func (s *CatalogService) SearchGames(ctx context.Context, query string, page, limit int) ([]*Game, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.games.Search(ctx, query, limit, (page-1)*limit)
}

func (s *CatalogService) GetGameDetails(ctx context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*Game, *UserGame, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if game == nil {
		return nil, nil, apperrGameNotFound(gameID)
	}

	if libraryID == nil {
		return game, nil, nil
	}

	userGame, err := s.userGames.GetByLibraryAndGame(ctx, *libraryID, gameID)
	if err != nil {
		return nil, nil, err
	}

	return game, userGame, nil
}

func (s *CatalogService) RecordSyncOperation(ctx context.Context, op *SyncOperation) (*SyncOperation, error) {
	return s.syncOps.Create(ctx, op)
}

func (s *CatalogService) UpdateSyncOperation(ctx context.Context, op *SyncOperation) error {
	return s.syncOps.Update(ctx, op)
}
