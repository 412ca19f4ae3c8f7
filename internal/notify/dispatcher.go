// Package notify composes and delivers reminder messages when a job fires.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
)

// ModeMarkdownV2 is the parse mode every reminder is sent with.
const ModeMarkdownV2 = "MarkdownV2"

// Message is an outgoing chat message. Markup is passed through to the
// transport untouched (e.g. an inline keyboard).
type Message struct {
	Text      string
	ParseMode string
	Markup    any
}

// Sender delivers messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, msg Message) (int, error)
}

// TaskLister returns the user's tasks for the current local day.
type TaskLister interface {
	ListToday(ctx context.Context, userID int64) ([]domain.Task, error)
}

// Dispatcher is the job engine's fire callback.
type Dispatcher struct {
	tasks   TaskLister
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(tasks TaskLister, sender Sender, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{tasks: tasks, sender: sender, log: log, metrics: m}
}

// Compose reads today's tasks and renders the reminder text.
func (d *Dispatcher) Compose(ctx context.Context, userID int64, kind domain.Kind) (string, error) {
	today, err := d.tasks.ListToday(ctx, userID)
	if err != nil {
		return "", err
	}
	return ComposeText(kind, today)
}

// Fire sends the reminder. Failures are logged and counted, never returned:
// a broken delivery must not affect the recurring job.
func (d *Dispatcher) Fire(ctx context.Context, userID int64, kind domain.Kind) {
	log := d.log.With(zap.Int64("user_id", userID), zap.String("kind", string(kind)))

	text, err := d.Compose(ctx, userID, kind)
	if err != nil {
		d.metrics.Fired(string(kind), "compose_error")
		log.Error("compose reminder failed", zap.Error(err))
		return
	}

	if _, err := d.sender.SendMessage(ctx, userID, Message{Text: text, ParseMode: ModeMarkdownV2}); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
		d.metrics.Fired(string(kind), "delivery_failed")
		log.Warn("reminder not delivered", zap.Error(err))
		return
	}

	d.metrics.Fired(string(kind), "sent")
	log.Info("reminder sent")
}
