package gamesController

import (
	"context"
	"testing"

	"github.com/gamedjinn/sync/internal/apperr"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGameRepo struct {
	byID  map[uuid.UUID]*Game
	all   []*Game
	found []*Game
}

func (f *fakeGameRepo) GetByID(ctx context.Context, id uuid.UUID) (*Game, error) {
	return f.byID[id], nil
}
func (f *fakeGameRepo) GetBySlug(ctx context.Context, slug string) (*Game, error) { return nil, nil }
func (f *fakeGameRepo) FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]*Game, error) {
	return nil, nil
}
func (f *fakeGameRepo) FindFuzzyByTitle(ctx context.Context, normalizedTitle string, threshold float64, limit int) ([]repositories.FuzzyGameMatch, error) {
	return nil, nil
}
func (f *fakeGameRepo) FindByExternalIDs(ctx context.Context, externalIDs map[string]string) ([]*Game, error) {
	return nil, nil
}
func (f *fakeGameRepo) UpsertBatch(ctx context.Context, games []*Game) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeGameRepo) Search(ctx context.Context, query string, limit, offset int) ([]*Game, error) {
	return f.found, nil
}
func (f *fakeGameRepo) List(ctx context.Context, limit, offset int) ([]*Game, int64, error) {
	return f.all, int64(len(f.all)), nil
}

type fakeUserGameRepo struct {
	byLibraryAndGame map[uuid.UUID]*UserGame
}

func (f *fakeUserGameRepo) GetByLibraryAndGame(ctx context.Context, libraryID, gameID uuid.UUID) (*UserGame, error) {
	return f.byLibraryAndGame[gameID], nil
}
func (f *fakeUserGameRepo) ListByLibrary(ctx context.Context, libraryID uuid.UUID) ([]*UserGame, error) {
	return nil, nil
}
func (f *fakeUserGameRepo) UpsertBatch(ctx context.Context, userGames []*UserGame) (int, error) {
	return 0, nil
}
func (f *fakeUserGameRepo) MarkUnseenAsUnowned(ctx context.Context, libraryID uuid.UUID, seenGameIDs []uuid.UUID) (int, error) {
	return 0, nil
}

func newTestController(games *fakeGameRepo, userGames *fakeUserGameRepo) GamesControllerInterface {
	cs := services.NewCatalogService(nil, nil, games, userGames, nil, nil, nil)
	return New(games, cs)
}

func TestList_ReturnsAllWithTotal(t *testing.T) {
	games := &fakeGameRepo{all: []*Game{{}, {}}}
	ctrl := newTestController(games, &fakeUserGameRepo{})

	result, total, err := ctrl.List(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, result, 2)
}

func TestSearch_DelegatesToCatalogService(t *testing.T) {
	match := &Game{Title: "Half-Life"}
	games := &fakeGameRepo{found: []*Game{match}}
	ctrl := newTestController(games, &fakeUserGameRepo{})

	result, err := ctrl.Search(context.Background(), "half", 1, 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Half-Life", result[0].Title)
}

func TestGetDetails_GameNotFound(t *testing.T) {
	games := &fakeGameRepo{byID: map[uuid.UUID]*Game{}}
	ctrl := newTestController(games, &fakeUserGameRepo{})

	_, _, err := ctrl.GetDetails(context.Background(), uuid.New(), nil)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestGetDetails_WithLibraryIncludesUserGame(t *testing.T) {
	gameID := uuid.New()
	libraryID := uuid.New()
	game := &Game{}
	game.ID = gameID

	userGame := &UserGame{}
	games := &fakeGameRepo{byID: map[uuid.UUID]*Game{gameID: game}}
	userGames := &fakeUserGameRepo{byLibraryAndGame: map[uuid.UUID]*UserGame{gameID: userGame}}
	ctrl := newTestController(games, userGames)

	resultGame, resultUserGame, err := ctrl.GetDetails(context.Background(), gameID, &libraryID)
	require.NoError(t, err)
	assert.Equal(t, gameID, resultGame.ID)
	assert.Same(t, userGame, resultUserGame)
}

func TestGetDetails_WithoutLibraryOmitsUserGame(t *testing.T) {
	gameID := uuid.New()
	game := &Game{}
	game.ID = gameID
	games := &fakeGameRepo{byID: map[uuid.UUID]*Game{gameID: game}}
	ctrl := newTestController(games, &fakeUserGameRepo{})

	_, userGame, err := ctrl.GetDetails(context.Background(), gameID, nil)
	require.NoError(t, err)
	assert.Nil(t, userGame)
}
