package store

import (
	"context"
	"time"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// UserRepo covers account rows and reminder flags.
type UserRepo interface {
	EnsureUser(ctx context.Context, userID int64) error
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	SetUserOffset(ctx context.Context, userID int64, offset string) error
	DeleteUser(ctx context.Context, userID int64) error
	IsReminderEnabled(ctx context.Context, userID int64, kind domain.Kind) (bool, error)
	SetReminderEnabled(ctx context.Context, userID int64, kind domain.Kind, enabled bool) error
}

// TaskRepo covers per-user tasks.
type TaskRepo interface {
	InsertTask(ctx context.Context, t *domain.Task) error
	ListTasksByDate(ctx context.Context, userID int64, date string) ([]domain.Task, error)
	MarkTaskDone(ctx context.Context, userID int64, content, date string) (int64, error)
	DeleteTask(ctx context.Context, userID int64, content string) (int64, error)
	TaskStats(ctx context.Context, userID int64, date string) (domain.TaskStats, error)
}

// ReminderRepo covers the durable reminder records.
type ReminderRepo interface {
	UpsertReminder(ctx context.Context, rec domain.ReminderRecord) error
	DeleteReminder(ctx context.Context, userID int64, kind domain.Kind) error
	GetReminder(ctx context.Context, userID int64, kind domain.Kind) (domain.ReminderRecord, error)
	ListReminders(ctx context.Context) ([]domain.ReminderRecord, error)
	ListUserReminders(ctx context.Context, userID int64) ([]domain.ReminderRecord, error)
}

// JobRepo is the job engine's own persistence.
type JobRepo interface {
	SaveJob(ctx context.Context, job domain.ScheduledJob) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context) ([]domain.ScheduledJob, error)
	MarkJobFired(ctx context.Context, id string, at time.Time) error
}

// Repo defines all storage operations.
type Repo interface {
	UserRepo
	TaskRepo
	ReminderRepo
	JobRepo
	Ping(ctx context.Context) error
	Close() error
}
