package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/account"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/notify"
)

// UI texts in English
const (
	welcomeText = "👋 Welcome to TodoPrompt!\n\n" +
		"I keep your daily task list and remind you about it.\n" +
		"First, tell me your timezone (IANA name, e.g. Europe/Moscow) or pick one below."
	startText = "👋 Welcome back! Type /help to see what I can do."
	helpText  = "📋 Commands:\n" +
		"/add <priority 1-3> <task> — add a task for today\n" +
		"/tasks — today's tasks\n" +
		"/done <task> — mark a task done\n" +
		"/remove <task> — delete a task\n" +
		"/remind_done HH:MM — daily achievement summary\n" +
		"/remind_left HH:MM — daily last call for open tasks\n" +
		"/unremind_done, /unremind_left — stop a reminder\n" +
		"/tz — change timezone\n" +
		"/profile — your stats\n" +
		"/delete_account — remove all your data"

	askTZText       = "Send your timezone (Region/City, e.g. Europe/Moscow) or choose one:"
	askTaskText     = "Send the task as \"<priority 1-3> <text>\", e.g. \"2 buy milk\"."
	askClockText    = "Send the time as HH:MM (24-hour), e.g. 21:30."
	noTasksText     = "No tasks for today yet. Add one with /add."
	confirmDelText  = "⚠️ This deletes your profile, tasks and reminders. Are you sure?"
	deletedText     = "Your account was deleted. Send /start to begin again."
	usageDoneText   = "Usage: /done <task text>"
	usageRemoveText = "Usage: /remove <task text>"
	unknownCmdText  = "Unknown command. Type /help."
)

var kindTitle = map[domain.Kind]string{
	domain.KindAchievement: "Achievement",
	domain.KindLastCall:    "Last call",
}

func tzSavedText(u *domain.User) string {
	return fmt.Sprintf("🌐 Timezone saved: %s (%s)", u.Timezone, u.UTCOffset)
}

func taskAddedText(t domain.Task) string {
	return fmt.Sprintf("Your task was successfully added ✅\n%s -- %s", t.Content, strings.Repeat("🔥", t.Priority))
}

func tasksText(tasks []domain.Task) string {
	if len(tasks) == 0 {
		return noTasksText
	}
	return "📝 Today's tasks:\n" + strings.Join(notify.FormatTaskList(tasks), "\n")
}

func reminderSetText(kind domain.Kind, fireLocal string) string {
	return fmt.Sprintf("⏰ %s reminder set. Next one: %s", kindTitle[kind], fireLocal)
}

func unscheduledText(kind domain.Kind, jobCancelled, recordDeleted bool) string {
	job := "was not scheduled ❌"
	if jobCancelled {
		job = "unscheduled ✅"
	}
	rec := "not found ❌"
	if recordDeleted {
		rec = "removed ✅"
	}
	return fmt.Sprintf("%s reminder %s\nSaved entry %s", kindTitle[kind], job, rec)
}

func reminderDisplay(p account.Profile, kind domain.Kind) string {
	if at, ok := p.Reminders[kind]; ok {
		return at
	}
	return "None set!"
}

func profileText(p account.Profile) string {
	return strings.Join([]string{
		fmt.Sprintf("👤 Your Telegram ID: %d", p.UserID),
		fmt.Sprintf("🌐 Your UTC Offset: %s / %s", p.UTCOffset, p.Timezone),
		fmt.Sprintf("🔲 Total Tasks Logged: %d", p.Stats.Logged),
		fmt.Sprintf("✅ Total Tasks Done: %d", p.Stats.Done),
		fmt.Sprintf("❌ Total Tasks Left: %d", p.Stats.Left),
		fmt.Sprintf("☀️ Today's Tasks Done: %d of %d", p.Stats.TodayDone, p.Stats.Today),
		fmt.Sprintf("⌚ Achievement Reminder Is Set For: %s", reminderDisplay(p, domain.KindAchievement)),
		fmt.Sprintf("⌛ Last Call Reminder Is Set For: %s", reminderDisplay(p, domain.KindLastCall)),
	}, "\n")
}

// mainMenuKeyboard builds the reply keyboard shown after onboarding.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/tasks"),
			tgbotapi.NewKeyboardButton("/add"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/profile"),
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Europe/Moscow", "tz:Europe/Moscow"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/London", "tz:Europe/London"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("America/New_York", "tz:America/New_York"),
			tgbotapi.NewInlineKeyboardButtonData("Asia/Tehran", "tz:Asia/Tehran"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("UTC", "tz:UTC"),
		),
	)
}

// tasksKeyboard has one "mark done" button per open task, five per row.
// Returns nil when nothing is open.
func tasksKeyboard(tasks []domain.Task) *tgbotapi.InlineKeyboardMarkup {
	var (
		rows [][]tgbotapi.InlineKeyboardButton
		row  []tgbotapi.InlineKeyboardButton
	)
	for i, t := range tasks {
		if t.Done {
			continue
		}
		pos := strconv.Itoa(i + 1)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+pos, cbDonePrefix+pos))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func deleteConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete", cbDeleteYes),
			tgbotapi.NewInlineKeyboardButtonData("↩️ Cancel", cbDeleteNo),
		),
	)
}
