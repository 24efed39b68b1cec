package services

import (
	"context"
	"testing"

	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGameRepoForGIR struct {
	byExternalID      map[string][]*Game
	byNormalizedTitle map[string][]*Game
	fuzzyMatches      []repositories.FuzzyGameMatch
}

func (f *fakeGameRepoForGIR) GetByID(ctx context.Context, id uuid.UUID) (*Game, error) { return nil, nil }
func (f *fakeGameRepoForGIR) GetBySlug(ctx context.Context, slug string) (*Game, error) { return nil, nil }
func (f *fakeGameRepoForGIR) FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]*Game, error) {
	return f.byNormalizedTitle[normalizedTitle], nil
}
func (f *fakeGameRepoForGIR) FindFuzzyByTitle(ctx context.Context, normalizedTitle string, threshold float64, limit int) ([]repositories.FuzzyGameMatch, error) {
	return f.fuzzyMatches, nil
}
func (f *fakeGameRepoForGIR) FindByExternalIDs(ctx context.Context, externalIDs map[string]string) ([]*Game, error) {
	var results []*Game
	for key, value := range externalIDs {
		if value == "" {
			continue
		}
		results = append(results, f.byExternalID[key+":"+value]...)
	}
	return results, nil
}
func (f *fakeGameRepoForGIR) UpsertBatch(ctx context.Context, games []*Game) (int, int, error) {
	return 0, 0, nil
}
func (f *fakeGameRepoForGIR) Search(ctx context.Context, query string, limit, offset int) ([]*Game, error) {
	return nil, nil
}
func (f *fakeGameRepoForGIR) List(ctx context.Context, limit, offset int) ([]*Game, int64, error) {
	return nil, 0, nil
}

type fakeGameMatchRepo struct {
	upserted *GameMatch
}

func (f *fakeGameMatchRepo) Upsert(ctx context.Context, match *GameMatch) (*GameMatch, error) {
	f.upserted = match
	return match, nil
}
func (f *fakeGameMatchRepo) ListForGame(ctx context.Context, gameID uuid.UUID) ([]*GameMatch, error) {
	return nil, nil
}

func TestNormalizeTitle_StripsEditionSuffixAndPunctuation(t *testing.T) {
	got := NormalizeTitle("The Witcher 3 - Wild Hunt (Game of the Year Edition)")
	assert.Equal(t, "the witcher 3 wild hunt", got)
}

// ExternalId resolution must not depend on title: a candidate whose title
// has changed on this platform should still resolve via a matching external
// identifier, with no title-based pre-filter narrowing the candidate set.
func TestResolve_ExternalIDStrategyIsTitleIndependent(t *testing.T) {
	existing := &Game{Title: "Old Title Entirely"}
	existing.ID = uuid.Must(uuid.NewV7())

	games := &fakeGameRepoForGIR{
		byExternalID: map[string][]*Game{
			"steamAppId:292030": {existing},
		},
	}
	gir := NewIdentityResolverService(games, &fakeGameMatchRepo{})

	resolved, isNew, pending, err := gir.Resolve(context.Background(), ResolveInput{
		Title:       "A Completely Different Title",
		ExternalIDs: map[string]string{"steamAppId": "292030"},
	})

	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Nil(t, pending)
	assert.Same(t, existing, resolved)
}

func TestResolve_TitleExactCreatesPendingMatch(t *testing.T) {
	existing := &Game{Title: "Hades"}
	existing.ID = uuid.Must(uuid.NewV7())

	games := &fakeGameRepoForGIR{
		byNormalizedTitle: map[string][]*Game{
			"hades": {existing},
		},
	}
	gir := NewIdentityResolverService(games, &fakeGameMatchRepo{})

	resolved, isNew, pending, err := gir.Resolve(context.Background(), ResolveInput{Title: "Hades"})

	require.NoError(t, err)
	assert.True(t, isNew)
	require.NotNil(t, pending)
	assert.Equal(t, existing.ID, pending.PrimaryGameID)
	assert.Equal(t, MatchMethodTitleExact, pending.Method)
	assert.NotSame(t, existing, resolved)
}

func TestResolve_TitleFuzzyRequiresMatchingPublisherOrDeveloper(t *testing.T) {
	publisher := "CD Projekt Red"
	existing := &Game{Title: "The Witcher 3: Wild Hunt", Publisher: &publisher}
	existing.ID = uuid.Must(uuid.NewV7())

	games := &fakeGameRepoForGIR{
		fuzzyMatches: []repositories.FuzzyGameMatch{{Game: existing, Score: 0.95}},
	}
	gir := NewIdentityResolverService(games, &fakeGameMatchRepo{})

	otherPublisher := "A Different Publisher"
	_, isNew, pending, err := gir.Resolve(context.Background(), ResolveInput{
		Title:     "The Witcher III Wild Hunt",
		Publisher: &otherPublisher,
	})

	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Nil(t, pending, "mismatched publisher should reject the fuzzy candidate")
}

func TestResolve_NoCandidatesCreatesNewGame(t *testing.T) {
	games := &fakeGameRepoForGIR{}
	gir := NewIdentityResolverService(games, &fakeGameMatchRepo{})

	resolved, isNew, pending, err := gir.Resolve(context.Background(), ResolveInput{Title: "Some New Game"})

	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Nil(t, pending)
	assert.Equal(t, "Some New Game", resolved.Title)
}

func TestMergeGames_UpsertsUnverifiedMatch(t *testing.T) {
	matches := &fakeGameMatchRepo{}
	gir := NewIdentityResolverService(&fakeGameRepoForGIR{}, matches)

	primary := uuid.Must(uuid.NewV7())
	duplicate := uuid.Must(uuid.NewV7())

	stored, err := gir.MergeGames(context.Background(), primary, duplicate, MatchMethodTitleFuzzy, 0.93)

	require.NoError(t, err)
	assert.False(t, stored.Verified)
	assert.Same(t, stored, matches.upserted)
}
