package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gamedjinn/sync/config"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/valkey-io/valkey-go"
)

// Valkey Database Index Organization
// Each database index provides logical separation for a subsystem's keyspace
// so a FLUSHDB against one never touches another's state.
const (
	// GENERAL_CACHE_INDEX (DB 0) - miscellaneous caching (platform/game lookups)
	GENERAL_CACHE_INDEX = iota

	// RATE_LIMIT_CACHE_INDEX (DB 1) - RL's sliding-window call counters
	RATE_LIMIT_CACHE_INDEX

	// SYNC_CHECKPOINT_CACHE_INDEX (DB 2) - SS's locks and resumable checkpoints
	SYNC_CHECKPOINT_CACHE_INDEX

	// PROGRESS_CACHE_INDEX (DB 3) - PT's latest-progress snapshots for polling
	PROGRESS_CACHE_INDEX

	// JOB_QUEUE_CACHE_INDEX (DB 4) - JQ's priority sorted sets
	JOB_QUEUE_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 5) - RB's pub/sub channels
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		return log.Error("failed to initialize cache database", "reason", "address or port is empty")
	}

	addr := fmt.Sprintf("%s:%d", address, port)
	var cacheDB Cache
	var err error

	cacheDB.General, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    GENERAL_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	cacheDB.RateLimit, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    RATE_LIMIT_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create rate limit valkey client", err)
	}

	cacheDB.SyncCheckpoint, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    SYNC_CHECKPOINT_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create sync checkpoint valkey client", err)
	}

	cacheDB.Progress, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    PROGRESS_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create progress valkey client", err)
	}

	cacheDB.JobQueue, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    JOB_QUEUE_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create job queue valkey client", err)
	}

	cacheDB.Events, err = valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		SelectDB:    EVENTS_CACHE_INDEX,
	})
	if err != nil {
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var client CacheClient
	var dbName string

	switch index {
	case GENERAL_CACHE_INDEX:
		client = cacheDB.General
		dbName = "General"
	case RATE_LIMIT_CACHE_INDEX:
		client = cacheDB.RateLimit
		dbName = "RateLimit"
	case SYNC_CHECKPOINT_CACHE_INDEX:
		client = cacheDB.SyncCheckpoint
		dbName = "SyncCheckpoint"
	case PROGRESS_CACHE_INDEX:
		client = cacheDB.Progress
		dbName = "Progress"
	case JOB_QUEUE_CACHE_INDEX:
		client = cacheDB.JobQueue
		dbName = "JobQueue"
	case EVENTS_CACHE_INDEX:
		client = cacheDB.Events
		dbName = "Events"
	default:
		log.Warn("invalid cache database index", "index", index)
		return
	}

	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("failed to clear cache database", err, "index", index, "dbName", dbName)
		return
	}

	log.Info("successfully cleared cache database", "index", index, "dbName", dbName)
}
