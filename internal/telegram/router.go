package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/account"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/reminder"
)

// Pending state keys used in conversational flows.
const (
	pendingTZ         = "await_tz_text"
	pendingTask       = "await_task_text"
	pendingRemindDone = "await_remind_done_time"
	pendingRemindLeft = "await_remind_left_time"
)

// Callback data.
const (
	cbTZPrefix   = "tz:"
	cbDonePrefix = "done:"
	cbDeleteYes  = "del:yes"
	cbDeleteNo   = "del:no"
)

// TaskService is the task list API.
type TaskService interface {
	AddTask(ctx context.Context, userID int64, content string, priority int) (domain.Task, error)
	ListToday(ctx context.Context, userID int64) ([]domain.Task, error)
	MarkDone(ctx context.Context, userID int64, content string) (int64, error)
	Remove(ctx context.Context, userID int64, content string) (int64, error)
}

// ReminderService schedules and removes daily reminders.
type ReminderService interface {
	Schedule(ctx context.Context, userID int64, kind domain.Kind, clock string) (reminder.Result, error)
	Unschedule(ctx context.Context, userID int64, kind domain.Kind) (reminder.UnscheduleResult, error)
}

// AccountService covers onboarding, profile and removal.
type AccountService interface {
	Registered(ctx context.Context, userID int64) (bool, error)
	Register(ctx context.Context, userID int64, tz string) (*domain.User, error)
	Profile(ctx context.Context, userID int64) (account.Profile, error)
	Delete(ctx context.Context, userID int64) error
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
// Chats are private, so the chat id doubles as the user id.
type Router struct {
	tr        *Transport
	log       *zap.Logger
	tasks     TaskService
	reminders ReminderService
	accounts  AccountService
	state     map[int64]string // chatID -> pending state
	mu        sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(tr *Transport, log *zap.Logger, tasks TaskService, reminders ReminderService, accounts AccountService) *Router {
	return &Router{
		tr:        tr,
		log:       log,
		tasks:     tasks,
		reminders: reminders,
		accounts:  accounts,
		state:     make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

// splitCommand returns "/cmd" without any @botname suffix, and the rest of the text.
func splitCommand(text string) (string, string) {
	cmd, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		if !strings.HasPrefix(text, "/") {
			// Free-form text answers a pending prompt.
			r.handleFreeForm(ctx, chatID, text)
			return
		}

		// A new command abandons whatever was pending.
		r.clearPending(chatID)
		cmd, args := splitCommand(text)
		switch cmd {
		case "/start":
			r.handleStart(ctx, chatID)
		case "/help":
			r.sendText(ctx, chatID, helpText)
		case "/tz":
			r.askTZ(ctx, chatID)
		case "/add":
			r.handleAdd(ctx, chatID, args)
		case "/tasks":
			r.handleTasks(ctx, chatID)
		case "/done":
			r.handleDone(ctx, chatID, args)
		case "/remove":
			r.handleRemove(ctx, chatID, args)
		case "/remind_done":
			r.handleRemind(ctx, chatID, domain.KindAchievement, args)
		case "/remind_left":
			r.handleRemind(ctx, chatID, domain.KindLastCall, args)
		case "/unremind_done":
			r.handleUnremind(ctx, chatID, domain.KindAchievement)
		case "/unremind_left":
			r.handleUnremind(ctx, chatID, domain.KindLastCall)
		case "/profile":
			r.handleProfile(ctx, chatID)
		case "/delete_account":
			r.askDeleteAccount(ctx, chatID)
		default:
			r.sendText(ctx, chatID, unknownCmdText)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID
		messageID := cb.Message.MessageID

		switch {
		case strings.HasPrefix(data, cbTZPrefix):
			r.answer(cb.ID)
			r.saveTZ(ctx, chatID, strings.TrimPrefix(data, cbTZPrefix))
		case strings.HasPrefix(data, cbDonePrefix):
			r.handleDoneCallback(ctx, chatID, messageID, strings.TrimPrefix(data, cbDonePrefix), cb.ID)
		case data == cbDeleteYes:
			r.answer(cb.ID)
			r.handleDeleteAccount(ctx, chatID, messageID)
		case data == cbDeleteNo:
			r.answer(cb.ID)
			if err := r.tr.DeleteMessage(ctx, chatID, messageID); err != nil {
				r.log.Warn("delete confirmation failed", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		default:
			// Unknown callback, ignore silently
		}
	}
}
