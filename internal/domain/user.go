package domain

import (
	"fmt"
	"time"
)

// Kind is a reminder category.
type Kind string

const (
	// KindAchievement summarises the tasks completed today.
	KindAchievement Kind = "ACHIEVEMENT"
	// KindLastCall lists the tasks still open today.
	KindLastCall Kind = "LAST_CALL"
)

// Kinds lists every reminder kind in display order.
var Kinds = []Kind{KindAchievement, KindLastCall}

// Valid reports whether k is a known reminder kind.
func (k Kind) Valid() bool {
	return k == KindAchievement || k == KindLastCall
}

// ParseKind accepts both current names and the legacy DONE/LEFT aliases.
func ParseKind(s string) (Kind, error) {
	switch s {
	case string(KindAchievement), "DONE":
		return KindAchievement, nil
	case string(KindLastCall), "LEFT":
		return KindLastCall, nil
	}
	return "", fmt.Errorf("%w: unknown reminder kind %q", ErrInvalidInput, s)
}

// JobID returns the deterministic job identifier for a (user, kind) pair.
func JobID(userID int64, kind Kind) string {
	return fmt.Sprintf("reminder:%d:%s", userID, kind)
}

// User represents a chat account and its reminder flags.
type User struct {
	ID                 int64
	Timezone           string // IANA name, empty until onboarding completes
	UTCOffset          string // display only, e.g. UTC+03:00
	AchievementEnabled bool
	LastCallEnabled    bool
	CreatedAt          time.Time // UTC
}

// HasTimezone reports whether onboarding stored a zone for the user.
func (u *User) HasTimezone() bool {
	return u != nil && u.Timezone != ""
}

// ReminderEnabled returns the flag for the given kind.
func (u *User) ReminderEnabled(kind Kind) bool {
	switch kind {
	case KindAchievement:
		return u.AchievementEnabled
	case KindLastCall:
		return u.LastCallEnabled
	}
	return false
}

// Task is a single to-do entry bucketed by its local creation day.
type Task struct {
	ID        int64
	UserID    int64
	Content   string
	Priority  int
	Done      bool
	CreatedAt string // local wall clock, LocalLayout
}

// ReminderRecord is the durable, user-facing view of a scheduled reminder.
type ReminderRecord struct {
	UserID        int64
	Kind          Kind
	Hour          int
	Minute        int
	NextFireLocal string // LocalLayout, informational
}

// TaskStats aggregates task counters for the profile view.
type TaskStats struct {
	Logged    int
	Done      int
	Left      int
	Today     int
	TodayDone int
}

// ScheduledJob is the job engine's persisted descriptor. It carries primitive
// payload only, so a trigger can be rebuilt after a restart.
type ScheduledJob struct {
	ID        string
	UserID    int64
	Kind      Kind
	Hour      int
	Minute    int
	Timezone  string
	FirstFire time.Time // UTC
	LastFired time.Time // UTC, zero if it never fired
}
