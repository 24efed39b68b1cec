// Package jobs holds the gocron-driven periodic triggers SchedulerService
// runs; each Job enqueues work onto JQ rather than doing the work itself,
// matching spec §4.7's "gocron drives periodic enqueue, not execution".
package jobs

import (
	"context"

	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"
)

// ScheduledSyncJob enqueues a default-priority sync for every sync-enabled
// library once a day, giving every connected platform library an
// incremental refresh without a user having to trigger one manually.
type ScheduledSyncJob struct {
	libraries repositories.UserLibraryRepository
	jq        *services.JobQueueService
	schedule  services.Schedule
	log       logger.Logger
}

func NewScheduledSyncJob(libraries repositories.UserLibraryRepository, jq *services.JobQueueService, schedule services.Schedule) *ScheduledSyncJob {
	return &ScheduledSyncJob{
		libraries: libraries,
		jq:        jq,
		schedule:  schedule,
		log:       logger.New("ScheduledSyncJob"),
	}
}

func (j *ScheduledSyncJob) Name() string {
	return "scheduled_library_sync"
}

func (j *ScheduledSyncJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *ScheduledSyncJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	libraries, err := j.libraries.ListEnabledForSync(ctx)
	if err != nil {
		return log.Err("failed to list sync-enabled libraries", err)
	}

	enqueued := 0
	for _, library := range libraries {
		if library.IsSyncing() {
			continue
		}

		_, err := j.jq.Enqueue(ctx, services.QueueDefault, "sync.library", map[string]any{
			"libraryId": library.ID.String(),
			"force":     false,
			"syncType":  string(SyncOperationIncrementalSync),
		}, nil)
		if err != nil {
			log.Warn("failed to enqueue scheduled sync", "error", err, "libraryID", library.ID)
			continue
		}
		enqueued++
	}

	log.Info("scheduled sync pass complete", "libraryCount", len(libraries), "enqueued", enqueued)
	return nil
}
