package constants

import (
	"time"

	"github.com/google/uuid"
)

// SystemUserID stands in for the caller's identity on every UserLibrary
// this core manages. The HTTP and WebSocket surfaces are single-tenant per
// spec §6.3 (auth, when enabled, gates access to the deployment rather than
// distinguishing between multiple account holders), so UserID on each
// UserLibrary row is fixed instead of coming from a session.
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const (
	// RateLimitKeyPrefix namespaces the sliding-window sorted sets RL keeps
	// per platform+credential pair in the RateLimit cache DB.
	RateLimitKeyPrefix = "ratelimit" // CacheBuilder adds colon

	// SyncLockPrefix and SyncCheckpointPrefix live in the SyncCheckpoint
	// cache DB; the lock key carries a TTL equal to the stale-lock timeout.
	SyncLockPrefix       = "sync_lock"
	SyncCheckpointPrefix = "sync_checkpoint"
	SyncLockTTL          = 15 * time.Minute

	// ProgressEventPrefix namespaces the last-known ProgressEvent per
	// library, kept for clients that poll the sync status endpoint.
	ProgressEventPrefix = "sync_progress"
	ProgressEventTTL    = 1 * time.Hour

	// JobQueuePrefix namespaces JQ's three priority sorted sets.
	JobQueuePrefix = "jobqueue"

	// PlatformLibraryCachePrefix namespaces a platform adapter's cached full
	// library fetch, keyed by platform slug and user identifier, so
	// CountGames/FetchBatch present a paginated interface over a storefront
	// API that only returns the whole library in one call.
	PlatformLibraryCachePrefix = "platform_library"
	PlatformLibraryCacheTTL    = 1 * time.Hour
)
