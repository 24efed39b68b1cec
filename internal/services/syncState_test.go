package services

import (
	"context"
	"testing"

	. "github.com/gamedjinn/sync/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLibraryRepoForSyncState struct {
	updated *UserLibrary
}

func (f *fakeLibraryRepoForSyncState) GetByID(ctx context.Context, id uuid.UUID) (*UserLibrary, error) {
	return nil, nil
}
func (f *fakeLibraryRepoForSyncState) GetByUserAndPlatform(ctx context.Context, userID, platformID uuid.UUID) (*UserLibrary, error) {
	return nil, nil
}
func (f *fakeLibraryRepoForSyncState) ListByUser(ctx context.Context, userID uuid.UUID) ([]*UserLibrary, error) {
	return nil, nil
}
func (f *fakeLibraryRepoForSyncState) List(ctx context.Context, limit, offset int) ([]*UserLibrary, int64, error) {
	return nil, 0, nil
}
func (f *fakeLibraryRepoForSyncState) ListEnabledForSync(ctx context.Context) ([]*UserLibrary, error) {
	return nil, nil
}
func (f *fakeLibraryRepoForSyncState) Create(ctx context.Context, library *UserLibrary) (*UserLibrary, error) {
	return library, nil
}
func (f *fakeLibraryRepoForSyncState) Update(ctx context.Context, library *UserLibrary) error {
	f.updated = library
	return nil
}
func (f *fakeLibraryRepoForSyncState) Delete(ctx context.Context, id uuid.UUID) error { return nil }

// ShouldPause's SyncEnabled=false branch returns before touching the cache,
// so it's safe to exercise with a nil valkey client — the lock-ownership
// branches need a real or mocked Valkey connection and are left to
// integration tests, matching how this codebase treats CacheBuilder-backed
// behavior elsewhere.
func TestShouldPause_SyncDisabledReturnsTrueWithoutTouchingCache(t *testing.T) {
	svc := NewSyncStateService(nil, &fakeLibraryRepoForSyncState{})
	library := &UserLibrary{SyncEnabled: false}

	paused, err := svc.ShouldPause(context.Background(), library, "worker-1")
	require.NoError(t, err)
	assert.True(t, paused)
}

func TestSetStatus_MapsEachStatusToLibraryFields(t *testing.T) {
	repo := &fakeLibraryRepoForSyncState{}
	svc := NewSyncStateService(nil, repo)

	t.Run("syncing", func(t *testing.T) {
		library := &UserLibrary{}
		require.NoError(t, svc.SetStatus(context.Background(), library, SyncStatusSyncing, nil))
		assert.Equal(t, SyncStatusSyncing, library.SyncStatus)
		assert.Same(t, library, repo.updated)
	})

	t.Run("completed", func(t *testing.T) {
		library := &UserLibrary{}
		require.NoError(t, svc.SetStatus(context.Background(), library, SyncStatusCompleted, nil))
		assert.Equal(t, SyncStatusCompleted, library.SyncStatus)
	})

	t.Run("failed carries reason", func(t *testing.T) {
		library := &UserLibrary{}
		reason := "adapter returned 500"
		require.NoError(t, svc.SetStatus(context.Background(), library, SyncStatusFailed, &reason))
		assert.Equal(t, SyncStatusFailed, library.SyncStatus)
		require.NotNil(t, library.SyncError)
		assert.Equal(t, reason, *library.SyncError)
	})

	t.Run("cancelled", func(t *testing.T) {
		library := &UserLibrary{}
		require.NoError(t, svc.SetStatus(context.Background(), library, SyncStatusCancelled, nil))
		assert.Equal(t, SyncStatusCancelled, library.SyncStatus)
	})

	t.Run("rate limited carries reason", func(t *testing.T) {
		library := &UserLibrary{}
		reason := "429 from platform"
		require.NoError(t, svc.SetStatus(context.Background(), library, SyncStatusRateLimited, &reason))
		assert.Equal(t, SyncStatusRateLimited, library.SyncStatus)
		require.NotNil(t, library.SyncError)
		assert.Equal(t, reason, *library.SyncError)
	})
}

func TestLockKey_IsScopedPerLibrary(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	assert.NotEqual(t, lockKey(a), lockKey(b))
	assert.Contains(t, lockKey(a), a.String())
}

// AcquireLock, RenewLock, ReleaseLock, and the lock-ownership branch of
// ShouldPause all go through CacheBuilder.SetNX/Get/Set against a real
// valkey.Client; exercising them needs a live (or miniredis-backed) Valkey
// connection and belongs in this project's integration suite rather than
// here.
func TestSyncLock_RequiresLiveCache(t *testing.T) {
	t.Skip("lock acquire/renew/release require a real Valkey connection - covered by integration tests")
}
