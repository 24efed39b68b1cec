package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/google/uuid"
)

// QueueName is one of JQ's three priority lanes. Workers pull by descending
// priority (High before Default before Low) and strict FIFO within a lane.
type QueueName string

const (
	QueueHigh    QueueName = "high"
	QueueDefault QueueName = "default"
	QueueLow     QueueName = "low"
)

// queueOrder is the priority pull order every dequeue attempt walks.
var queueOrder = []QueueName{QueueHigh, QueueDefault, QueueLow}

// queuePolicy carries the per-queue defaults spec §4.7 assigns: high-priority
// manual syncs get one attempt (the user will just retry), scheduled syncs
// get bounded retries, enrichment jobs get the most.
type queuePolicy struct {
	MaxAttempts int
	Timeout     time.Duration
}

var queuePolicies = map[QueueName]queuePolicy{
	QueueHigh:    {MaxAttempts: 1, Timeout: 2 * time.Hour},
	QueueDefault: {MaxAttempts: 3, Timeout: 1 * time.Hour},
	QueueLow:     {MaxAttempts: 5, Timeout: 1 * time.Hour},
}

const (
	resultRetention  = 24 * time.Hour
	failureRetention = 24 * time.Hour
)

// Job is JQ's envelope: a named function plus its arguments, deferred at
// least until NotBefore, with a bounded number of attempts.
type Job struct {
	ID           uuid.UUID      `json:"jobId"`
	Queue        QueueName      `json:"queue"`
	Function     string         `json:"function"`
	Args         map[string]any `json:"args"`
	EnqueuedAt   time.Time      `json:"enqueuedAt"`
	NotBefore    *time.Time     `json:"notBefore,omitempty"`
	TimeoutMs    int64          `json:"timeoutMs"`
	MaxAttempts  int            `json:"maxAttempts"`
	Attempt      int            `json:"attempt"`
	ResultTTLSec int            `json:"resultTtlSec"`
	FailureTTLSec int           `json:"failureTtlSec"`
}

// JobQueueService is JQ: three Valkey sorted-set priority queues, scored by
// enqueue time so pop order is FIFO within a queue, with NotBefore deferral
// for rate-limit backoff and 24h result/failure retention for observability.
type JobQueueService struct {
	log   logger.Logger
	cache database.CacheClient
}

func NewJobQueueService(cache database.CacheClient) *JobQueueService {
	return &JobQueueService{
		log:   logger.New("JobQueueService"),
		cache: cache,
	}
}

func queueKey(queue QueueName) string {
	return fmt.Sprintf("%s:%s", constants.JobQueuePrefix, queue)
}

func resultKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:result:%s", constants.JobQueuePrefix, jobID)
}

func failureKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:failure:%s", constants.JobQueuePrefix, jobID)
}

// Enqueue adds job to its queue, scored by enqueue time (or NotBefore, for
// deferred rate-limit retries) so the pop order respects both FIFO and
// deferral.
func (s *JobQueueService) Enqueue(ctx context.Context, queue QueueName, function string, args map[string]any, notBefore *time.Time) (*Job, error) {
	log := s.log.Function("Enqueue")

	policy, ok := queuePolicies[queue]
	if !ok {
		return nil, log.Err("unknown queue", fmt.Errorf("unknown queue %q", queue), "queue", queue)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:            uuid.Must(uuid.NewV7()),
		Queue:         queue,
		Function:      function,
		Args:          args,
		EnqueuedAt:    now,
		NotBefore:     notBefore,
		TimeoutMs:     policy.Timeout.Milliseconds(),
		MaxAttempts:   policy.MaxAttempts,
		Attempt:       0,
		ResultTTLSec:  int(resultRetention.Seconds()),
		FailureTTLSec: int(failureRetention.Seconds()),
	}

	score := float64(now.UnixNano())
	if notBefore != nil && notBefore.After(now) {
		score = float64(notBefore.UnixNano())
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, log.Err("failed to marshal job", err, "jobID", job.ID)
	}

	if err := database.NewCacheBuilder(s.cache, queueKey(queue)).
		WithContext(ctx).
		WithMember(string(payload)).
		WithScore(score).
		SortedSetAdd(); err != nil {
		return nil, log.Err("failed to enqueue job", err, "jobID", job.ID, "queue", queue)
	}

	return job, nil
}

// Dequeue pops the next eligible job across queues in priority order
// (high, default, low), skipping entries whose NotBefore has not yet
// arrived. Returns nil if nothing is eligible right now.
func (s *JobQueueService) Dequeue(ctx context.Context) (*Job, error) {
	log := s.log.Function("Dequeue")

	now := time.Now().UTC()

	for _, queue := range queueOrder {
		builder := database.NewCacheBuilder(s.cache, queueKey(queue)).WithContext(ctx)

		members, err := builder.SortedSetPopMin(1)
		if err != nil {
			return nil, log.Err("failed to pop job", err, "queue", queue)
		}
		if len(members) == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(members[0]), &job); err != nil {
			log.Warn("failed to unmarshal job, dropping", "error", err, "queue", queue)
			continue
		}

		if job.NotBefore != nil && job.NotBefore.After(now) {
			// Not due yet: put it back with its original deferred score
			// instead of re-running it immediately.
			if err := database.NewCacheBuilder(s.cache, queueKey(queue)).
				WithContext(ctx).
				WithMember(members[0]).
				WithScore(float64(job.NotBefore.UnixNano())).
				SortedSetAdd(); err != nil {
				return nil, log.Err("failed to redefer job", err, "jobID", job.ID)
			}
			continue
		}

		return &job, nil
	}

	return nil, nil
}

// Requeue resubmits job for another attempt, incrementing Attempt and
// applying notBefore — used for transient backoff and rate-limit deferral.
// Returns an error if job has exhausted its MaxAttempts.
func (s *JobQueueService) Requeue(ctx context.Context, job *Job, queue QueueName, notBefore *time.Time) error {
	log := s.log.Function("Requeue")

	job.Attempt++
	if job.Attempt >= job.MaxAttempts {
		return log.Err("job exhausted max attempts", fmt.Errorf("attempt %d >= maxAttempts %d", job.Attempt, job.MaxAttempts), "jobID", job.ID)
	}

	job.Queue = queue
	job.NotBefore = notBefore

	score := float64(time.Now().UTC().UnixNano())
	if notBefore != nil {
		score = float64(notBefore.UnixNano())
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return log.Err("failed to marshal requeued job", err, "jobID", job.ID)
	}

	if err := database.NewCacheBuilder(s.cache, queueKey(queue)).
		WithContext(ctx).
		WithMember(string(payload)).
		WithScore(score).
		SortedSetAdd(); err != nil {
		return log.Err("failed to requeue job", err, "jobID", job.ID)
	}

	return nil
}

// RecordResult retains a completed job's outcome for resultRetention, for
// operator observability.
func (s *JobQueueService) RecordResult(ctx context.Context, job *Job, result map[string]any) error {
	if err := database.NewCacheBuilder(s.cache, resultKey(job.ID)).
		WithContext(ctx).
		WithTTL(resultRetention).
		WithStruct(result).
		Set(); err != nil {
		return s.log.Err("failed to record job result", err, "jobID", job.ID)
	}
	return nil
}

// RecordFailure retains a terminally failed job's error for
// failureRetention.
func (s *JobQueueService) RecordFailure(ctx context.Context, job *Job, reason string) error {
	if err := database.NewCacheBuilder(s.cache, failureKey(job.ID)).
		WithContext(ctx).
		WithTTL(failureRetention).
		WithStruct(map[string]any{"reason": reason, "attempt": job.Attempt}).
		Set(); err != nil {
		return s.log.Err("failed to record job failure", err, "jobID", job.ID)
	}
	return nil
}

// Depth reports the number of pending jobs in queue, for operator metrics.
func (s *JobQueueService) Depth(ctx context.Context, queue QueueName) (int64, error) {
	count, err := database.NewCacheBuilder(s.cache, queueKey(queue)).WithContext(ctx).SortedSetCardinality()
	if err != nil {
		return 0, s.log.Err("failed to read queue depth", err, "queue", queue)
	}
	return count, nil
}
