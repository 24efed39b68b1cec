package platformsController

import (
	"context"
	"testing"

	. "github.com/gamedjinn/sync/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatformRepo struct {
	platforms []*Platform
}

func (f *fakePlatformRepo) GetByID(ctx context.Context, id uuid.UUID) (*Platform, error) {
	return nil, nil
}
func (f *fakePlatformRepo) GetBySlug(ctx context.Context, slug string) (*Platform, error) {
	return nil, nil
}
func (f *fakePlatformRepo) List(ctx context.Context) ([]*Platform, error) { return f.platforms, nil }
func (f *fakePlatformRepo) Create(ctx context.Context, platform *Platform) (*Platform, error) {
	return platform, nil
}

func TestList_ReturnsPlatforms(t *testing.T) {
	repo := &fakePlatformRepo{platforms: []*Platform{{Slug: "steam", Name: "Steam"}}}
	ctrl := New(repo)

	platforms, err := ctrl.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, platforms, 1)
	assert.Equal(t, "steam", platforms[0].Slug)
}
