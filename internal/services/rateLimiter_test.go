package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGraduatedDelay_NoSlowdownBelowBuffer(t *testing.T) {
	tests := []struct {
		name            string
		countAfterAdmit int
		maxRequests     int
		window          time.Duration
		expectSlowdown  bool
	}{
		{"empty window", 1, 100, time.Minute, false},
		{"just under buffer threshold", 79, 100, time.Minute, false},
		{"at buffer threshold", 80, 100, time.Minute, true},
		{"near the cap", 99, 100, time.Minute, true},
		{"at the cap", 100, 100, time.Minute, true},
		{"zero max requests never divides by zero", 5, 0, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := graduatedDelay(tt.countAfterAdmit, tt.maxRequests, tt.window)
			if tt.expectSlowdown {
				assert.Greater(t, delay, time.Duration(0))
			} else {
				assert.Equal(t, time.Duration(0), delay)
			}
		})
	}
}

func TestGraduatedDelay_IncreasesApproachingCap(t *testing.T) {
	window := time.Minute
	atBuffer := graduatedDelay(80, 100, window)
	nearCap := graduatedDelay(99, 100, window)

	assert.Greater(t, nearCap, atBuffer, "delay should grow as the window fills up")
}

func TestServiceConstruction(t *testing.T) {
	svc := NewRateLimiterService(nil)
	assert.NotNil(t, svc)
	assert.NotNil(t, svc.waiters)
}

func TestWindowKey_ScopedByPlatformAndUser(t *testing.T) {
	uuidA := uuid.New()
	uuidB := uuid.New()
	a := windowKey("steam", uuidA)
	b := windowKey("steam", uuidB)
	c := windowKey("gog", uuidA)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

// enqueueWaiter/releaseWaiter implement the FIFO tie-break for concurrent
// Wait callers contending on the same key; this exercises the queue
// bookkeeping directly without touching the cache.
func TestWaiterQueue_ServesInArrivalOrder(t *testing.T) {
	svc := NewRateLimiterService(nil)
	key := "steam:queue-order"

	first := svc.enqueueWaiter(key)
	second := svc.enqueueWaiter(key)
	third := svc.enqueueWaiter(key)

	assertClosed(t, first)
	assertOpen(t, second)
	assertOpen(t, third)

	svc.releaseWaiter(key, first)
	assertClosed(t, second)
	assertOpen(t, third)

	svc.releaseWaiter(key, second)
	assertClosed(t, third)

	svc.releaseWaiter(key, third)
	svc.mu.Lock()
	_, exists := svc.waiters[key]
	svc.mu.Unlock()
	assert.False(t, exists, "queue should be cleaned up once empty")
}

func assertClosed(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	default:
		t.Fatal("expected channel to be closed (this waiter's turn)")
	}
}

func assertOpen(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("expected channel to still be open (not this waiter's turn yet)")
	default:
	}
}
