package apperr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_SetKind(t *testing.T) {
	assert.Equal(t, KindValidation, Validation("c", "m").Kind)
	assert.Equal(t, KindNotFound, NotFound("c", "m").Kind)
	assert.Equal(t, KindConflict, Conflict("c", "m").Kind)
	assert.Equal(t, KindAuth, Auth("c", "m").Kind)
	assert.Equal(t, KindExternal, External("c", "m").Kind)
	assert.Equal(t, KindInternal, Internal("c", "m").Kind)

	rl := RateLimited("c", "m", 5*time.Second)
	assert.Equal(t, KindRateLimited, rl.Kind)
	assert.Equal(t, 5*time.Second, rl.RetryAfter)
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("db_error", "failed to query").WithCause(cause)

	assert.Contains(t, err.Error(), "db_error")
	assert.Contains(t, err.Error(), "failed to query")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_WithoutCause(t *testing.T) {
	err := NotFound("library_not_found", "library not found")
	assert.Equal(t, "library_not_found: library not found", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWithDetails(t *testing.T) {
	err := Validation("bad_input", "invalid field").WithDetails(map[string]any{"field": "email"})
	assert.Equal(t, "email", err.Details["field"])
}

func TestAs(t *testing.T) {
	err := Conflict("sync_in_progress", "already syncing")
	ae, ok := As(err)
	assert.True(t, ok)
	assert.Same(t, err, ae)

	_, ok = As(errors.New("plain error"))
	assert.False(t, ok)
}
