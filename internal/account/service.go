// Package account covers onboarding, the profile summary and account removal.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// Store is the persistence the service needs.
type Store interface {
	EnsureUser(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	UpsertUser(ctx context.Context, u *domain.User) error
	SetUserOffset(ctx context.Context, userID int64, offset string) error
	DeleteUser(ctx context.Context, userID int64) error
	TaskStats(ctx context.Context, userID int64, date string) (domain.TaskStats, error)
	ListUserReminders(ctx context.Context, userID int64) ([]domain.ReminderRecord, error)
}

// Zones validates zone names and yields local time.
type Zones interface {
	Location(name string) (*time.Location, error)
	OffsetString(name string) string
	LocalNow(ctx context.Context, userID int64) time.Time
}

// Reminders is the part of the reminder scheduler touched by account changes.
type Reminders interface {
	Reschedule(ctx context.Context, userID int64) error
	DropUser(ctx context.Context, userID int64, purge func(context.Context) error) error
}

// Profile is the summary shown by /profile.
type Profile struct {
	UserID    int64
	Timezone  string
	UTCOffset string
	Stats     domain.TaskStats
	Reminders map[domain.Kind]string // HH:MM for every enabled kind
}

type Service struct {
	store     Store
	zones     Zones
	reminders Reminders
	log       *zap.Logger
}

func NewService(store Store, zones Zones, reminders Reminders, log *zap.Logger) *Service {
	return &Service{store: store, zones: zones, reminders: reminders, log: log}
}

// Registered reports whether the user finished onboarding.
func (s *Service) Registered(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.Storage("get user", err)
	}
	return u.HasTimezone(), nil
}

// Register stores (or changes) the user's timezone. Active reminders follow
// the user into the new zone at the same local time of day.
func (s *Service) Register(ctx context.Context, userID int64, tz string) (*domain.User, error) {
	tz = strings.TrimSpace(tz)
	if _, err := s.zones.Location(tz); err != nil {
		return nil, err
	}
	if err := s.store.EnsureUser(ctx, userID); err != nil {
		return nil, domain.Storage("ensure user", err)
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domain.Storage("get user", err)
	}
	previous := u.Timezone

	u.Timezone = tz
	u.UTCOffset = s.zones.OffsetString(tz)
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, domain.Storage("save user", err)
	}
	s.log.Info("timezone registered",
		zap.Int64("user_id", userID),
		zap.String("tz", tz),
		zap.String("previous", previous),
	)

	if previous != "" && previous != tz {
		if err := s.reminders.Reschedule(ctx, userID); err != nil {
			return u, fmt.Errorf("move reminders to %s: %w", tz, err)
		}
	}
	return u, nil
}

// Profile gathers the user's zone, task counters and reminder times. The
// cached offset is refreshed on the way.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, domain.Storage("get user", err)
	}
	if !u.HasTimezone() {
		return Profile{}, fmt.Errorf("user %d: %w", userID, domain.ErrNoTimezone)
	}

	if off := s.zones.OffsetString(u.Timezone); off != u.UTCOffset {
		if err := s.store.SetUserOffset(ctx, userID, off); err != nil {
			s.log.Warn("refresh offset failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			u.UTCOffset = off
		}
	}

	today := s.zones.LocalNow(ctx, userID).Format(domain.DateLayout)
	stats, err := s.store.TaskStats(ctx, userID, today)
	if err != nil {
		return Profile{}, domain.Storage("task stats", err)
	}
	recs, err := s.store.ListUserReminders(ctx, userID)
	if err != nil {
		return Profile{}, domain.Storage("list reminders", err)
	}

	p := Profile{
		UserID:    userID,
		Timezone:  u.Timezone,
		UTCOffset: u.UTCOffset,
		Stats:     stats,
		Reminders: make(map[domain.Kind]string, len(recs)),
	}
	for _, r := range recs {
		if u.ReminderEnabled(r.Kind) {
			p.Reminders[r.Kind] = domain.FormatClock(r.Hour, r.Minute)
		}
	}
	return p, nil
}

// Delete cancels the user's jobs, then removes the user, tasks and reminder
// records in one transaction. No reminder can be scheduled for the user
// until both steps are done.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	err := s.reminders.DropUser(ctx, userID, func(ctx context.Context) error {
		return domain.Storage("delete user", s.store.DeleteUser(ctx, userID))
	})
	if err != nil {
		return fmt.Errorf("delete account %d: %w", userID, err)
	}
	s.log.Info("account deleted", zap.Int64("user_id", userID))
	return nil
}
