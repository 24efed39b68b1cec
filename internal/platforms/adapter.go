// Package platforms defines the boundary every storefront integration
// implements, and the error taxonomy SW and RL key their retry/backoff
// decisions on.
package platforms

import (
	"context"
	"errors"
	"time"
)

// ErrorClass buckets a platform error by how SW should react to it.
type ErrorClass string

const (
	ErrorClassTransient   ErrorClass = "transient"
	ErrorClassRateLimited ErrorClass = "rateLimited"
	ErrorClassAuth        ErrorClass = "auth"
	ErrorClassNotFound    ErrorClass = "notFound"
	ErrorClassPermanent   ErrorClass = "permanent"
)

// Error wraps an underlying platform failure with its classification and,
// for rate limits, the server-advised retry delay.
type Error struct {
	Class      ErrorClass
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Class)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func NewTransientError(err error) error { return &Error{Class: ErrorClassTransient, Err: err} }
func NewAuthError(err error) error      { return &Error{Class: ErrorClassAuth, Err: err} }
func NewNotFoundError(err error) error  { return &Error{Class: ErrorClassNotFound, Err: err} }
func NewPermanentError(err error) error { return &Error{Class: ErrorClassPermanent, Err: err} }

func NewRateLimitError(err error, retryAfter time.Duration) error {
	return &Error{Class: ErrorClassRateLimited, RetryAfter: retryAfter, Err: err}
}

// ClassOf extracts the ErrorClass from err, defaulting to transient for any
// error an adapter did not explicitly classify — SW treats unknown failures
// as retryable rather than giving up on a sync outright.
func ClassOf(err error) ErrorClass {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ErrorClassTransient
}

// RetryAfterOf returns the server-advised backoff for a rate-limited error,
// or zero if none was supplied.
func RetryAfterOf(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// GameData is the platform-independent shape every adapter normalizes its
// storefront's catalog response into before it reaches CS.
type GameData struct {
	Title             string
	PlatformGameID    string
	Developer         *string
	Publisher         *string
	ReleaseDate       *time.Time
	Description       *string
	Genres            []string
	Tags              []string
	CoverImageURL     *string
	Screenshots       []string
	MetacriticScore   *int
	PlatformScore     *int
	ESRBRating        *string
	ESRBDescriptors   []string
	PlaytimeMainHours *float64
	ExternalIDs       map[string]string
}

// UserGameData pairs a catalog GameData with the calling user's ownership
// facts for that title on the platform.
type UserGameData struct {
	Game                 GameData
	Owned                bool
	OwnedAt               *time.Time
	TotalPlaytimeMinutes int
	FirstPlayedAt        *time.Time
	LastPlayedAt         *time.Time
	PlatformData         map[string]any
}

type AchievementData struct {
	PlatformAchievementID string
	Title                 string
	Description           *string
	IconURL               *string
	Points                int
	RarityPercent         *float64
	Hidden                bool
}

type UserAchievementData struct {
	Achievement     AchievementData
	UnlockedAt      *time.Time
	ProgressPercent int
}

type UserProfileData struct {
	UserIdentifier string
	DisplayName    string
	AvatarURL      *string
	TotalGames     *int
}

// Adapter is the contract a storefront integration implements. Every method
// takes the caller's raw, opaque credentials blob so Adapter implementations
// stay stateless between calls.
//
// CountGames and FetchBatch give SW a consistent page-level interface even
// over a platform whose native API returns a whole library in one call: an
// adapter is expected to fetch and cache the library once, bounded for a
// short period, then have FetchBatch slice that cache rather than
// re-fetching per page.
type Adapter interface {
	PlatformSlug() string
	RequiresAuth() bool
	ValidateCredentials(ctx context.Context, credentials []byte) error
	GetUserProfile(ctx context.Context, credentials []byte, userIdentifier string) (*UserProfileData, error)
	CountGames(ctx context.Context, credentials []byte, userIdentifier string) (int, error)
	FetchBatch(ctx context.Context, credentials []byte, userIdentifier string, offset, limit int) ([]UserGameData, error)
	GetGameAchievements(ctx context.Context, credentials []byte, platformGameID string) ([]AchievementData, error)
	GetUserAchievements(ctx context.Context, credentials []byte, userIdentifier, platformGameID string) ([]UserAchievementData, error)
}
