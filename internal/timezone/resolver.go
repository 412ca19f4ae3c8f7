// Package timezone turns stored IANA zone names into user-local time.
package timezone

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

const defaultCacheSize = 128

// UserGetter is the slice of the store the resolver needs.
type UserGetter interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// Resolver resolves users' zones and caches loaded locations.
type Resolver struct {
	users UserGetter
	log   *zap.Logger
	cache *lru.Cache[string, *time.Location]
	now   func() time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver with an LRU of at most cacheSize locations.
func NewResolver(users UserGetter, log *zap.Logger, cacheSize int, opts ...Option) *Resolver {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *time.Location](cacheSize)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	r := &Resolver{users: users, log: log, cache: cache, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Now returns the resolver's current instant.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Location loads an IANA zone, going through the cache.
func (r *Resolver) Location(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, name)
	}
	if loc, ok := r.cache.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, name)
	}
	r.cache.Add(name, loc)
	return loc, nil
}

// Validate reports whether name is a recognised IANA zone identifier.
func (r *Resolver) Validate(name string) bool {
	_, err := r.Location(name)
	return err == nil
}

// UserLocation returns the user's zone, or domain.ErrNoTimezone when the user
// is unknown or never finished onboarding.
func (r *Resolver) UserLocation(ctx context.Context, userID int64) (*time.Location, error) {
	u, err := r.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w: %w", userID, domain.ErrNoTimezone, err)
	}
	if !u.HasTimezone() {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNoTimezone)
	}
	loc, err := r.Location(u.Timezone)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w: %w", userID, domain.ErrNoTimezone, err)
	}
	return loc, nil
}

// LocalNow returns the current time in the user's zone. It never fails: any
// lookup problem falls back to UTC with a warning.
func (r *Resolver) LocalNow(ctx context.Context, userID int64) time.Time {
	loc, err := r.UserLocation(ctx, userID)
	if err != nil {
		r.log.Warn("no usable timezone, defaulting to UTC",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return r.now().In(time.UTC)
	}
	return r.now().In(loc)
}

// OffsetString renders the zone's current offset as UTC±HH:MM. Display only:
// the value goes stale across DST transitions.
func (r *Resolver) OffsetString(name string) string {
	loc, err := r.Location(name)
	if err != nil {
		loc = time.UTC
	}
	return FormatOffset(r.now().In(loc))
}

// FormatOffset renders t's zone offset as UTC±HH:MM.
func FormatOffset(t time.Time) string {
	_, secs := t.Zone()
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}
