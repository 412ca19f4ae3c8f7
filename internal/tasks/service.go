// Package tasks holds the per-user daily task list logic.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

// Store is the persistence the service needs.
type Store interface {
	EnsureUser(ctx context.Context, userID int64) error
	InsertTask(ctx context.Context, t *domain.Task) error
	ListTasksByDate(ctx context.Context, userID int64, date string) ([]domain.Task, error)
	MarkTaskDone(ctx context.Context, userID int64, content, date string) (int64, error)
	DeleteTask(ctx context.Context, userID int64, content string) (int64, error)
}

// Clock yields the user's local time; timezone.Resolver satisfies it.
type Clock interface {
	LocalNow(ctx context.Context, userID int64) time.Time
}

// Service adds, lists and completes tasks in the user's local day.
type Service struct {
	store Store
	clock Clock
	log   *zap.Logger
}

func NewService(store Store, clock Clock, log *zap.Logger) *Service {
	return &Service{store: store, clock: clock, log: log}
}

// AddTask stores a task stamped with the user's local time.
func (s *Service) AddTask(ctx context.Context, userID int64, content string, priority int) (domain.Task, error) {
	if err := domain.ValidatePriority(priority); err != nil {
		return domain.Task{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Task{}, fmt.Errorf("%w: empty task", domain.ErrInvalidInput)
	}
	if err := s.store.EnsureUser(ctx, userID); err != nil {
		return domain.Task{}, domain.Storage("ensure user", err)
	}

	t := domain.Task{
		UserID:    userID,
		Content:   content,
		Priority:  priority,
		CreatedAt: domain.FormatLocal(s.clock.LocalNow(ctx, userID)),
	}
	if err := s.store.InsertTask(ctx, &t); err != nil {
		return domain.Task{}, domain.Storage("insert task", err)
	}
	s.log.Debug("task added",
		zap.Int64("user_id", userID),
		zap.Int64("task_id", t.ID),
		zap.Int("priority", priority),
	)
	return t, nil
}

// ListToday returns the tasks created on the user's current local date,
// most urgent first.
func (s *Service) ListToday(ctx context.Context, userID int64) ([]domain.Task, error) {
	list, err := s.store.ListTasksByDate(ctx, userID, s.today(ctx, userID))
	if err != nil {
		return nil, domain.Storage("list tasks", err)
	}
	return list, nil
}

// MarkDone completes today's open tasks whose content matches exactly.
func (s *Service) MarkDone(ctx context.Context, userID int64, content string) (int64, error) {
	content = strings.TrimSpace(content)
	n, err := s.store.MarkTaskDone(ctx, userID, content, s.today(ctx, userID))
	if err != nil {
		return 0, domain.Storage("mark done", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("open task %q today: %w", content, domain.ErrNotFound)
	}
	return n, nil
}

// Remove deletes the user's tasks with matching content from any day.
func (s *Service) Remove(ctx context.Context, userID int64, content string) (int64, error) {
	content = strings.TrimSpace(content)
	n, err := s.store.DeleteTask(ctx, userID, content)
	if err != nil {
		return 0, domain.Storage("delete task", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("task %q: %w", content, domain.ErrNotFound)
	}
	return n, nil
}

func (s *Service) today(ctx context.Context, userID int64) string {
	return s.clock.LocalNow(ctx, userID).Format(domain.DateLayout)
}
