package services

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

const (
	rateLimitKeyHash      = "ratelimit:%s"       // %s = platformSlug:userID
	dailyRateLimitKeyHash = "ratelimit:daily:%s" // %s = platformSlug:userID

	// rateLimitCheckSleep is how long a blocked caller waits before retrying
	// the sliding window.
	rateLimitCheckSleep = 1 * time.Second

	// dailyCapWindow is the rolling window PlatformRateLimit.DailyCap is
	// measured against, tracked the same way as the per-minute window but
	// with its own key so trimming one never disturbs the other.
	dailyCapWindow = 24 * time.Hour

	// bufferFraction is the fraction of a window's MaxRequests after which
	// Wait starts proactively pacing admitted requests, rather than firing
	// them back-to-back until the hard cap denies outright. Smoothing the
	// tail of the window this way means a sync rarely actually hits the
	// 429-equivalent deny path.
	bufferFraction = 0.8
)

// PlatformRateLimit describes a storefront's allowed request rate; callers
// pass it on every call (SW takes it from its defaultRateLimits map).
// DailyCap of zero means no daily ceiling beyond the sliding window.
type PlatformRateLimit struct {
	MaxRequests int
	Window      time.Duration
	DailyCap    int
}

// RateLimiterService enforces a sliding-window request budget per
// (platform, caller) pair in the RateLimit cache partition, plus an optional
// daily cap and in-process FIFO ordering for Wait callers contending on the
// same key. The window is a Valkey sorted set keyed by platform+user, scored
// by request timestamp; entries older than the window are trimmed before
// each check.
type RateLimiterService struct {
	log   logger.Logger
	cache valkey.Client

	mu      sync.Mutex
	waiters map[string]*list.List // key -> FIFO queue of waiter channels, process-local
}

func NewRateLimiterService(cache valkey.Client) *RateLimiterService {
	return &RateLimiterService{
		log:     logger.New("RateLimiterService"),
		cache:   cache,
		waiters: make(map[string]*list.List),
	}
}

func windowKey(platformSlug string, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", platformSlug, userID.String())
}

// Allow reports whether a request may proceed now without blocking. Callers
// that need to wait should use Wait instead.
func (s *RateLimiterService) Allow(ctx context.Context, platformSlug string, userID uuid.UUID, limit PlatformRateLimit) (bool, error) {
	allowed, _, err := s.admit(ctx, platformSlug, userID, limit)
	return allowed, err
}

// admit is Allow's implementation, additionally returning the window's
// occupancy immediately after this call so Wait can derive a graduated
// slowdown from it without a second round trip.
func (s *RateLimiterService) admit(ctx context.Context, platformSlug string, userID uuid.UUID, limit PlatformRateLimit) (bool, int, error) {
	log := s.log.Function("admit")

	key := windowKey(platformSlug, userID)
	now := time.Now()
	windowStart := now.Add(-limit.Window)

	builder := database.NewCacheBuilder(s.cache, key).WithHashPattern(rateLimitKeyHash).WithContext(ctx)

	if err := builder.SortedSetRemoveByScoreRange(0, float64(windowStart.UnixNano())); err != nil {
		return false, 0, log.Err("failed to trim rate limit window", err, "platformSlug", platformSlug, "userID", userID)
	}

	count, err := builder.SortedSetCardinality()
	if err != nil {
		return false, 0, log.Err("failed to read rate limit window size", err, "platformSlug", platformSlug, "userID", userID)
	}

	if int(count) >= limit.MaxRequests {
		return false, int(count), nil
	}

	if limit.DailyCap > 0 {
		underCap, err := s.underDailyCap(ctx, platformSlug, userID, limit.DailyCap)
		if err != nil {
			return false, int(count), log.Err("failed to read daily rate limit usage", err, "platformSlug", platformSlug, "userID", userID)
		}
		if !underCap {
			return false, int(count), nil
		}
	}

	member := uuid.New().String()
	if err := builder.WithMember(member).WithScore(float64(now.UnixNano())).SortedSetAdd(); err != nil {
		return false, int(count), log.Err("failed to record rate limit request", err, "platformSlug", platformSlug, "userID", userID)
	}

	if err := builder.WithTTL(limit.Window).Expire(); err != nil {
		log.Warn("failed to set expiry on rate limit window", "error", err, "platformSlug", platformSlug, "userID", userID)
	}

	if limit.DailyCap > 0 {
		if err := s.recordDaily(ctx, platformSlug, userID); err != nil {
			log.Warn("failed to record daily rate limit usage", "error", err, "platformSlug", platformSlug, "userID", userID)
		}
	}

	return true, int(count) + 1, nil
}

// underDailyCap reports whether platformSlug+userID has room left in the
// rolling dailyCapWindow for another request, given dailyCap.
func (s *RateLimiterService) underDailyCap(ctx context.Context, platformSlug string, userID uuid.UUID, dailyCap int) (bool, error) {
	key := windowKey(platformSlug, userID)
	dayStart := time.Now().Add(-dailyCapWindow)

	builder := database.NewCacheBuilder(s.cache, key).WithHashPattern(dailyRateLimitKeyHash).WithContext(ctx)
	if err := builder.SortedSetRemoveByScoreRange(0, float64(dayStart.UnixNano())); err != nil {
		return false, err
	}

	count, err := builder.SortedSetCardinality()
	if err != nil {
		return false, err
	}

	return int(count) < dailyCap, nil
}

// recordDaily appends one usage entry to the daily window, trimmed and
// expired independently of the sliding per-window counter.
func (s *RateLimiterService) recordDaily(ctx context.Context, platformSlug string, userID uuid.UUID) error {
	key := windowKey(platformSlug, userID)
	builder := database.NewCacheBuilder(s.cache, key).WithHashPattern(dailyRateLimitKeyHash).WithContext(ctx)

	member := uuid.New().String()
	if err := builder.WithMember(member).WithScore(float64(time.Now().UnixNano())).SortedSetAdd(); err != nil {
		return err
	}
	return builder.WithTTL(dailyCapWindow).Expire()
}

// graduatedDelay paces a caller once usage has crossed bufferFraction of the
// window's budget: instead of admitting at full speed until the hard cap
// denies outright, it spreads whatever budget remains evenly across the
// rest of the window.
func graduatedDelay(countAfterAdmit, maxRequests int, window time.Duration) time.Duration {
	if maxRequests <= 0 {
		return 0
	}
	threshold := int(float64(maxRequests) * bufferFraction)
	if countAfterAdmit < threshold {
		return 0
	}

	remaining := maxRequests - countAfterAdmit
	if remaining <= 0 {
		remaining = 1
	}
	return window / time.Duration(remaining+1)
}

// enqueueWaiter registers a new FIFO ticket for key and returns a channel
// that closes once it's this ticket's turn. A ticket at the head of an
// otherwise-empty queue is handed its turn immediately.
func (s *RateLimiterService) enqueueWaiter(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.waiters[key]
	if !ok {
		queue = list.New()
		s.waiters[key] = queue
	}

	ch := make(chan struct{})
	elem := queue.PushBack(ch)
	if queue.Front() == elem {
		close(ch)
	}
	return ch
}

// releaseWaiter removes ch from key's queue and hands the next ticket (if
// any) its turn, called once a waiter has been fully admitted or given up.
func (s *RateLimiterService) releaseWaiter(key string, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue, ok := s.waiters[key]
	if !ok {
		return
	}

	for e := queue.Front(); e != nil; e = e.Next() {
		if e.Value.(chan struct{}) == ch {
			queue.Remove(e)
			break
		}
	}

	if front := queue.Front(); front != nil {
		select {
		case <-front.Value.(chan struct{}):
			// already open somehow; nothing to do
		default:
			close(front.Value.(chan struct{}))
		}
	}

	if queue.Len() == 0 {
		delete(s.waiters, key)
	}
}

// Wait blocks until the caller's request is admitted or ctx is cancelled.
// Concurrent callers for the same platform+user are served in FIFO arrival
// order: a caller holds its queue position for the whole call, so a request
// stuck retrying against the cap never lets a later arrival jump ahead of
// it once both are contending on the same window.
func (s *RateLimiterService) Wait(ctx context.Context, platformSlug string, userID uuid.UUID, limit PlatformRateLimit) error {
	log := s.log.Function("Wait")
	key := windowKey(platformSlug, userID)

	turn := s.enqueueWaiter(key)
	defer s.releaseWaiter(key, turn)

	select {
	case <-ctx.Done():
		return log.Err("context cancelled while waiting for turn", ctx.Err(), "platformSlug", platformSlug, "userID", userID)
	case <-turn:
	}

	for {
		allowed, count, err := s.admit(ctx, platformSlug, userID, limit)
		if err != nil {
			return err
		}
		if allowed {
			if delay := graduatedDelay(count, limit.MaxRequests, limit.Window); delay > 0 {
				select {
				case <-ctx.Done():
					return log.Err("context cancelled during graduated slowdown", ctx.Err(), "platformSlug", platformSlug, "userID", userID)
				case <-time.After(delay):
				}
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return log.Err("context cancelled while waiting for rate limit", ctx.Err(), "platformSlug", platformSlug, "userID", userID)
		case <-time.After(rateLimitCheckSleep):
		}
	}
}
