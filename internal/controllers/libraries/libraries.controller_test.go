package librariesController

import (
	"context"
	"testing"

	"github.com/gamedjinn/sync/internal/apperr"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatformRepo struct {
	byID map[uuid.UUID]*Platform
}

func (f *fakePlatformRepo) GetByID(ctx context.Context, id uuid.UUID) (*Platform, error) {
	return f.byID[id], nil
}
func (f *fakePlatformRepo) GetBySlug(ctx context.Context, slug string) (*Platform, error) {
	for _, p := range f.byID {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}
func (f *fakePlatformRepo) List(ctx context.Context) ([]*Platform, error) { return nil, nil }
func (f *fakePlatformRepo) Create(ctx context.Context, platform *Platform) (*Platform, error) {
	platform.ID = uuid.New()
	f.byID[platform.ID] = platform
	return platform, nil
}

type fakeLibraryRepo struct {
	byID map[uuid.UUID]*UserLibrary
}

func newFakeLibraryRepo() *fakeLibraryRepo { return &fakeLibraryRepo{byID: map[uuid.UUID]*UserLibrary{}} }

func (f *fakeLibraryRepo) GetByID(ctx context.Context, id uuid.UUID) (*UserLibrary, error) {
	return f.byID[id], nil
}
func (f *fakeLibraryRepo) GetByUserAndPlatform(ctx context.Context, userID, platformID uuid.UUID) (*UserLibrary, error) {
	for _, l := range f.byID {
		if l.UserID == userID && l.PlatformID == platformID {
			return l, nil
		}
	}
	return nil, nil
}
func (f *fakeLibraryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*UserLibrary, error) {
	return nil, nil
}
func (f *fakeLibraryRepo) List(ctx context.Context, limit, offset int) ([]*UserLibrary, int64, error) {
	out := make([]*UserLibrary, 0, len(f.byID))
	for _, l := range f.byID {
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}
func (f *fakeLibraryRepo) ListEnabledForSync(ctx context.Context) ([]*UserLibrary, error) { return nil, nil }
func (f *fakeLibraryRepo) Create(ctx context.Context, library *UserLibrary) (*UserLibrary, error) {
	library.ID = uuid.New()
	f.byID[library.ID] = library
	return library, nil
}
func (f *fakeLibraryRepo) Update(ctx context.Context, library *UserLibrary) error {
	f.byID[library.ID] = library
	return nil
}
func (f *fakeLibraryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func newTestController() (LibrariesControllerInterface, *fakePlatformRepo, *fakeLibraryRepo) {
	platforms := &fakePlatformRepo{byID: map[uuid.UUID]*Platform{}}
	libraries := newFakeLibraryRepo()
	cs := services.NewCatalogService(platforms, libraries, nil, nil, nil, nil, nil)
	return New(platforms, libraries, cs), platforms, libraries
}

func TestCreate_UnknownPlatform_ReturnsNotFound(t *testing.T) {
	ctrl, _, _ := newTestController()

	_, err := ctrl.Create(context.Background(), CreateLibraryInput{
		PlatformID:     uuid.New(),
		UserIdentifier: "76561198000000000",
	})

	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestCreate_Success(t *testing.T) {
	ctrl, platforms, _ := newTestController()
	platform := &Platform{Slug: "steam", Name: "Steam"}
	platform.ID = uuid.New()
	platforms.byID[platform.ID] = platform

	library, err := ctrl.Create(context.Background(), CreateLibraryInput{
		PlatformID:     platform.ID,
		UserIdentifier: "76561198000000000",
		DisplayName:    "My Steam",
	})

	require.NoError(t, err)
	assert.Equal(t, "My Steam", library.DisplayName)
	assert.True(t, library.SyncEnabled)
	assert.Equal(t, SyncStatusIdle, library.SyncStatus)
}

func TestCreate_DuplicateForSameUserAndPlatform_Conflicts(t *testing.T) {
	ctrl, platforms, _ := newTestController()
	platform := &Platform{Slug: "steam", Name: "Steam"}
	platform.ID = uuid.New()
	platforms.byID[platform.ID] = platform

	input := CreateLibraryInput{PlatformID: platform.ID, UserIdentifier: "76561198000000000"}
	_, err := ctrl.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = ctrl.Create(context.Background(), input)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, ae.Kind)
}

func TestUpdate_NotFound(t *testing.T) {
	ctrl, _, _ := newTestController()

	_, err := ctrl.Update(context.Background(), uuid.New(), UpdateLibraryInput{})
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestUpdate_AppliesOptionalFields(t *testing.T) {
	ctrl, _, libraries := newTestController()
	lib := &UserLibrary{DisplayName: "Old", SyncEnabled: true}
	lib.ID = uuid.New()
	libraries.byID[lib.ID] = lib

	disabled := false
	newName := "New Name"
	updated, err := ctrl.Update(context.Background(), lib.ID, UpdateLibraryInput{
		SyncEnabled: &disabled,
		DisplayName: &newName,
	})

	require.NoError(t, err)
	assert.False(t, updated.SyncEnabled)
	assert.Equal(t, "New Name", updated.DisplayName)
}

func TestList_ClampsPagination(t *testing.T) {
	ctrl, _, libraries := newTestController()
	for range 3 {
		lib := &UserLibrary{}
		lib.ID = uuid.New()
		libraries.byID[lib.ID] = lib
	}

	results, total, err := ctrl.List(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, results, 3)
}

func TestDelete_Success(t *testing.T) {
	ctrl, _, libraries := newTestController()
	lib := &UserLibrary{}
	lib.ID = uuid.New()
	libraries.byID[lib.ID] = lib

	err := ctrl.Delete(context.Background(), lib.ID)
	require.NoError(t, err)
	assert.Nil(t, libraries.byID[lib.ID])
}
