// Package gamesController exposes the resolved catalog (CS's durable
// output) for browsing, full-text search, and per-game lookup.
package gamesController

import (
	"context"

	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"

	"github.com/google/uuid"
)

type GamesController struct {
	games repositories.GameRepository
	cs    *services.CatalogService
}

type GamesControllerInterface interface {
	List(ctx context.Context, page, limit int) ([]*Game, int64, error)
	Search(ctx context.Context, query string, page, limit int) ([]*Game, error)
	GetDetails(ctx context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*Game, *UserGame, error)
}

func New(games repositories.GameRepository, cs *services.CatalogService) GamesControllerInterface {
	return &GamesController{games: games, cs: cs}
}

func (gc *GamesController) List(ctx context.Context, page, limit int) ([]*Game, int64, error) {
	log := logger.NewWithContext(ctx, "gamesController").Function("List")

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	games, total, err := gc.games.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, log.Err("failed to list games", err)
	}
	return games, total, nil
}

func (gc *GamesController) Search(ctx context.Context, query string, page, limit int) ([]*Game, error) {
	return gc.cs.SearchGames(ctx, query, page, limit)
}

func (gc *GamesController) GetDetails(ctx context.Context, gameID uuid.UUID, libraryID *uuid.UUID) (*Game, *UserGame, error) {
	return gc.cs.GetGameDetails(ctx, gameID, libraryID)
}
