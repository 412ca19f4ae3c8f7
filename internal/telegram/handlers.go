package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/notify"
)

// userMessage maps error kinds to something the user can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPriority):
		return "Priority must be 1, 2 or 3."
	case errors.Is(err, domain.ErrInvalidTimeFormat):
		return "Please use 24-hour HH:MM, e.g. 09:00."
	case errors.Is(err, domain.ErrInvalidTimezone):
		return "Invalid timezone. Example: Europe/Moscow"
	case errors.Is(err, domain.ErrInvalidInput):
		return "That does not look right, please try again."
	case errors.Is(err, domain.ErrNoTimezone):
		return "Please set your timezone first with /tz."
	case errors.Is(err, domain.ErrNotFound):
		return "Nothing matched that."
	case errors.Is(err, domain.ErrSchedulingFailed):
		return "Could not set the reminder. Please try again later."
	default:
		return "Something went wrong. Please try again later."
	}
}

// fail logs unexpected errors and tells the user what happened.
func (r *Router) fail(ctx context.Context, chatID int64, op string, err error) {
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrSchedulingFailed) {
		r.log.Error(op+" failed", zap.Int64("chat_id", chatID), zap.Error(err))
	} else {
		r.log.Debug(op+" rejected", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	r.sendText(ctx, chatID, userMessage(err))
}

// --- Generic helpers ---

func (r *Router) send(ctx context.Context, chatID int64, msg notify.Message) {
	if _, err := r.tr.SendMessage(ctx, chatID, msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendText(ctx context.Context, chatID int64, text string) {
	r.send(ctx, chatID, notify.Message{Text: text})
}

func (r *Router) answer(cbID string) {
	if err := r.tr.AnswerCallback(cbID, ""); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}

// --- Onboarding ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	ok, err := r.accounts.Registered(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "start", err)
		return
	}
	if ok {
		r.send(ctx, chatID, notify.Message{Text: startText, Markup: mainMenuKeyboard()})
		return
	}
	r.send(ctx, chatID, notify.Message{Text: welcomeText, Markup: tzPresetsKeyboard()})
	r.setPending(chatID, pendingTZ)
}

func (r *Router) askTZ(ctx context.Context, chatID int64) {
	r.send(ctx, chatID, notify.Message{Text: askTZText, Markup: tzPresetsKeyboard()})
	r.setPending(chatID, pendingTZ)
}

func (r *Router) saveTZ(ctx context.Context, chatID int64, tz string) {
	u, err := r.accounts.Register(ctx, chatID, tz)
	if err != nil {
		if u != nil {
			// Saved, but moving reminders into the new zone failed.
			r.log.Error("reschedule after tz change failed", zap.Int64("chat_id", chatID), zap.Error(err))
			r.sendText(ctx, chatID, tzSavedText(u)+"\n"+userMessage(err))
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			// Keep waiting for a valid zone.
			r.setPending(chatID, pendingTZ)
		}
		r.fail(ctx, chatID, "register", err)
		return
	}
	r.clearPending(chatID)
	r.send(ctx, chatID, notify.Message{Text: tzSavedText(u), Markup: mainMenuKeyboard()})
}

// --- Free-form dispatcher (answers to prompts) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	switch r.getPending(chatID) {
	case pendingTZ:
		r.saveTZ(ctx, chatID, text)
	case pendingTask:
		r.clearPending(chatID)
		r.handleAdd(ctx, chatID, text)
	case pendingRemindDone:
		r.clearPending(chatID)
		r.handleRemind(ctx, chatID, domain.KindAchievement, text)
	case pendingRemindLeft:
		r.clearPending(chatID)
		r.handleRemind(ctx, chatID, domain.KindLastCall, text)
	default:
		// No pending flow: ignore free-form message
	}
}

// --- Tasks ---

func (r *Router) handleAdd(ctx context.Context, chatID int64, args string) {
	if args == "" {
		r.sendText(ctx, chatID, askTaskText)
		r.setPending(chatID, pendingTask)
		return
	}
	prio, content, _ := strings.Cut(args, " ")
	p, err := domain.ParsePriority(prio)
	if err != nil {
		r.fail(ctx, chatID, "add task", err)
		return
	}
	t, err := r.tasks.AddTask(ctx, chatID, content, p)
	if err != nil {
		r.fail(ctx, chatID, "add task", err)
		return
	}
	r.sendText(ctx, chatID, taskAddedText(t))
}

func (r *Router) tasksMessage(ctx context.Context, chatID int64) (notify.Message, error) {
	list, err := r.tasks.ListToday(ctx, chatID)
	if err != nil {
		return notify.Message{}, err
	}
	msg := notify.Message{Text: tasksText(list)}
	if kb := tasksKeyboard(list); kb != nil {
		msg.Markup = kb
	}
	return msg, nil
}

func (r *Router) handleTasks(ctx context.Context, chatID int64) {
	msg, err := r.tasksMessage(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "list tasks", err)
		return
	}
	r.send(ctx, chatID, msg)
}

func (r *Router) handleDone(ctx context.Context, chatID int64, content string) {
	if content == "" {
		r.sendText(ctx, chatID, usageDoneText)
		return
	}
	if _, err := r.tasks.MarkDone(ctx, chatID, content); err != nil {
		r.fail(ctx, chatID, "mark done", err)
		return
	}
	r.handleTasks(ctx, chatID)
}

// handleDoneCallback marks the task at a list position done and redraws the
// list message in place.
func (r *Router) handleDoneCallback(ctx context.Context, chatID int64, messageID int, data, cbID string) {
	pos, err := strconv.Atoi(data)
	if err != nil || pos < 1 {
		r.answer(cbID)
		return
	}
	list, err := r.tasks.ListToday(ctx, chatID)
	if err != nil {
		r.answer(cbID)
		r.fail(ctx, chatID, "list tasks", err)
		return
	}
	if pos > len(list) {
		// The list changed since the buttons were drawn (e.g. a new day).
		_ = r.tr.AnswerCallback(cbID, "This list is outdated, send /tasks again.")
		return
	}
	if _, err := r.tasks.MarkDone(ctx, chatID, list[pos-1].Content); err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.answer(cbID)
		r.fail(ctx, chatID, "mark done", err)
		return
	}
	_ = r.tr.AnswerCallback(cbID, "Done ✅")

	msg, err := r.tasksMessage(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "list tasks", err)
		return
	}
	if err := r.tr.EditMessage(ctx, chatID, messageID, msg); err != nil {
		r.log.Warn("edit task list failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleRemove(ctx context.Context, chatID int64, content string) {
	if content == "" {
		r.sendText(ctx, chatID, usageRemoveText)
		return
	}
	if _, err := r.tasks.Remove(ctx, chatID, content); err != nil {
		r.fail(ctx, chatID, "remove task", err)
		return
	}
	r.sendText(ctx, chatID, "Your task was removed ✅")
}

// --- Reminders ---

func (r *Router) handleRemind(ctx context.Context, chatID int64, kind domain.Kind, clock string) {
	if clock == "" {
		r.sendText(ctx, chatID, askClockText)
		if kind == domain.KindAchievement {
			r.setPending(chatID, pendingRemindDone)
		} else {
			r.setPending(chatID, pendingRemindLeft)
		}
		return
	}
	res, err := r.reminders.Schedule(ctx, chatID, kind, clock)
	if err != nil {
		r.fail(ctx, chatID, "schedule reminder", err)
		return
	}
	r.sendText(ctx, chatID, reminderSetText(kind, res.Record.NextFireLocal))
}

func (r *Router) handleUnremind(ctx context.Context, chatID int64, kind domain.Kind) {
	res, err := r.reminders.Unschedule(ctx, chatID, kind)
	if err != nil {
		r.fail(ctx, chatID, "unschedule reminder", err)
		return
	}
	r.sendText(ctx, chatID, unscheduledText(kind, res.JobCancelled, res.RecordDeleted))
}

// --- Account ---

func (r *Router) handleProfile(ctx context.Context, chatID int64) {
	p, err := r.accounts.Profile(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNoTimezone
		}
		r.fail(ctx, chatID, "profile", err)
		return
	}
	r.sendText(ctx, chatID, profileText(p))
}

func (r *Router) askDeleteAccount(ctx context.Context, chatID int64) {
	r.send(ctx, chatID, notify.Message{Text: confirmDelText, Markup: deleteConfirmKeyboard()})
}

func (r *Router) handleDeleteAccount(ctx context.Context, chatID int64, messageID int) {
	if err := r.accounts.Delete(ctx, chatID); err != nil {
		r.fail(ctx, chatID, "delete account", err)
		return
	}
	r.clearPending(chatID)
	if err := r.tr.EditMessage(ctx, chatID, messageID, notify.Message{Text: deletedText}); err != nil {
		r.log.Warn("edit confirmation failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
