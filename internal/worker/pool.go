// Package worker runs the goroutine pool that drains JQ and drives each
// popped job through SW, the systems-language realization of spec §5's
// "parallel workers executing cooperative/yielding I/O".
package worker

import (
	"context"
	"time"

	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/services"

	"github.com/google/uuid"
)

// pollInterval is how long an idle worker waits before checking JQ again.
const pollInterval = 2 * time.Second

// syncLibraryFunction is the only Job.Function this pool currently knows how
// to execute; JQ's envelope is generic so other job kinds can be added here
// later without touching JQ itself.
const syncLibraryFunction = "sync.library"

type Pool struct {
	log     logger.Logger
	jq      *services.JobQueueService
	sw      *services.SyncWorkerService
	workers int
}

func NewPool(jq *services.JobQueueService, sw *services.SyncWorkerService, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		log:     logger.New("worker.Pool"),
		jq:      jq,
		sw:      sw,
		workers: workers,
	}
}

// Start launches the configured number of worker goroutines; each runs
// until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.loop(ctx, i)
	}
	p.log.Function("Start").Info("worker pool started", "workers", p.workers)
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := p.log.Function("loop").With("workerID", id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.jq.Dequeue(ctx)
		if err != nil {
			log.Warn("dequeue failed, backing off", "error", err)
			time.Sleep(pollInterval)
			continue
		}
		if job == nil {
			time.Sleep(pollInterval)
			continue
		}

		p.execute(ctx, job)
	}
}

func (p *Pool) execute(ctx context.Context, job *services.Job) {
	log := p.log.Function("execute")

	switch job.Function {
	case syncLibraryFunction:
		p.executeSyncLibrary(ctx, job)
	default:
		log.Warn("unknown job function, dropping", "function", job.Function, "jobID", job.ID)
	}
}

func (p *Pool) executeSyncLibrary(ctx context.Context, job *services.Job) {
	log := p.log.Function("executeSyncLibrary")

	libraryIDRaw, _ := job.Args["libraryId"].(string)
	libraryID, err := uuid.Parse(libraryIDRaw)
	if err != nil {
		log.Warn("job carries invalid libraryId, dropping", "jobID", job.ID, "libraryId", libraryIDRaw)
		_ = p.jq.RecordFailure(ctx, job, "invalid libraryId")
		return
	}

	force, _ := job.Args["force"].(bool)
	syncTypeRaw, _ := job.Args["syncType"].(string)
	syncType := SyncOperationType(syncTypeRaw)
	if syncType == "" {
		syncType = SyncOperationManualSync
	}

	runCtx := ctx
	if job.TimeoutMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	result, err := p.sw.Run(runCtx, services.SyncJobInput{
		LibraryID: libraryID,
		Force:     force,
		SyncType:  syncType,
	})
	if err != nil {
		log.Warn("sync job errored before a classified result", "error", err, "jobID", job.ID, "libraryID", libraryID)
		if job.Attempt+1 < job.MaxAttempts {
			if reqErr := p.jq.Requeue(ctx, job, job.Queue, nil); reqErr != nil {
				log.Warn("failed to requeue job", "error", reqErr, "jobID", job.ID)
			}
			return
		}
		_ = p.jq.RecordFailure(ctx, job, err.Error())
		return
	}

	if recErr := p.jq.RecordResult(ctx, job, map[string]any{
		"status":         string(result.Status),
		"gamesProcessed": result.GamesProcessed,
		"gamesAdded":     result.GamesAdded,
		"gamesUpdated":   result.GamesUpdated,
		"durationMs":     result.DurationMs,
	}); recErr != nil {
		log.Warn("failed to record job result", "error", recErr, "jobID", job.ID)
	}
}
