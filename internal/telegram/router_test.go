package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/account"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/reminder"
)

type fakeBot struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, fmt.Errorf("unexpected %T", c)
	}
	b.sent = append(b.sent, m)
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) lastText() string {
	if len(b.sent) == 0 {
		return ""
	}
	return b.sent[len(b.sent)-1].Text
}

type fakeTasks struct {
	list  []domain.Task
	added []domain.Task
	done  []string
}

func (f *fakeTasks) AddTask(_ context.Context, userID int64, content string, priority int) (domain.Task, error) {
	if err := domain.ValidatePriority(priority); err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{UserID: userID, Content: content, Priority: priority}
	f.added = append(f.added, t)
	return t, nil
}

func (f *fakeTasks) ListToday(context.Context, int64) ([]domain.Task, error) {
	return f.list, nil
}

func (f *fakeTasks) MarkDone(_ context.Context, _ int64, content string) (int64, error) {
	for i := range f.list {
		if f.list[i].Content == content && !f.list[i].Done {
			f.list[i].Done = true
			f.done = append(f.done, content)
			return 1, nil
		}
	}
	return 0, domain.ErrNotFound
}

func (f *fakeTasks) Remove(context.Context, int64, string) (int64, error) {
	return 0, fmt.Errorf("task: %w", domain.ErrNotFound)
}

type fakeReminders struct{}

func (fakeReminders) Schedule(_ context.Context, userID int64, kind domain.Kind, clock string) (reminder.Result, error) {
	h, m, err := domain.ParseClock(clock)
	if err != nil {
		return reminder.Result{}, err
	}
	return reminder.Result{
		JobID:  domain.JobID(userID, kind),
		Record: domain.ReminderRecord{UserID: userID, Kind: kind, Hour: h, Minute: m, NextFireLocal: "2024-06-02 " + clock + ":00"},
	}, nil
}

func (fakeReminders) Unschedule(_ context.Context, userID int64, kind domain.Kind) (reminder.UnscheduleResult, error) {
	return reminder.UnscheduleResult{JobID: domain.JobID(userID, kind)}, nil
}

type fakeAccounts struct {
	tz      map[int64]string
	deleted []int64
}

func (f *fakeAccounts) Registered(_ context.Context, id int64) (bool, error) {
	return f.tz[id] != "", nil
}

func (f *fakeAccounts) Register(_ context.Context, id int64, tz string) (*domain.User, error) {
	if tz != "Europe/Moscow" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, tz)
	}
	f.tz[id] = tz
	return &domain.User{ID: id, Timezone: tz, UTCOffset: "UTC+03:00"}, nil
}

func (f *fakeAccounts) Profile(_ context.Context, id int64) (account.Profile, error) {
	if f.tz[id] == "" {
		return account.Profile{}, domain.ErrNotFound
	}
	return account.Profile{UserID: id, Timezone: f.tz[id], UTCOffset: "UTC+03:00",
		Reminders: map[domain.Kind]string{domain.KindAchievement: "09:00"}}, nil
}

func (f *fakeAccounts) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type harness struct {
	bot      *fakeBot
	tasks    *fakeTasks
	accounts *fakeAccounts
	router   *Router
}

func newHarness() *harness {
	h := &harness{bot: &fakeBot{}, tasks: &fakeTasks{}, accounts: &fakeAccounts{tz: map[int64]string{}}}
	h.router = NewRouter(NewTransport(h.bot), zap.NewNop(), h.tasks, fakeReminders{}, h.accounts)
	return h
}

func (h *harness) say(chatID int64, text string) {
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text},
	})
}

func (h *harness) click(chatID int64, messageID int, data string) {
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		},
	})
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/add@TodoPromptBot 2 buy milk")
	assert.Equal(t, "/add", cmd)
	assert.Equal(t, "2 buy milk", args)

	cmd, args = splitCommand("/TASKS")
	assert.Equal(t, "/tasks", cmd)
	assert.Empty(t, args)
}

func TestOnboarding(t *testing.T) {
	h := newHarness()

	h.say(1, "/start")
	assert.Equal(t, welcomeText, h.bot.lastText())
	assert.Equal(t, pendingTZ, h.router.getPending(1))

	h.say(1, "Mars/Base")
	assert.Equal(t, "Invalid timezone. Example: Europe/Moscow", h.bot.lastText())
	assert.Equal(t, pendingTZ, h.router.getPending(1))

	h.say(1, "Europe/Moscow")
	assert.Equal(t, "🌐 Timezone saved: Europe/Moscow (UTC+03:00)", h.bot.lastText())
	assert.Empty(t, h.router.getPending(1))

	h.say(1, "/start")
	assert.Equal(t, startText, h.bot.lastText())
}

func TestAddTask(t *testing.T) {
	h := newHarness()

	h.say(1, "/add 2 buy milk")
	require.Len(t, h.tasks.added, 1)
	assert.Equal(t, "buy milk", h.tasks.added[0].Content)
	assert.Equal(t, 2, h.tasks.added[0].Priority)
	assert.Equal(t, "Your task was successfully added ✅\nbuy milk -- 🔥🔥", h.bot.lastText())

	h.say(1, "/add 4 x")
	assert.Equal(t, "Priority must be 1, 2 or 3.", h.bot.lastText())

	h.say(1, "/add")
	assert.Equal(t, pendingTask, h.router.getPending(1))
	h.say(1, "3 call mom")
	require.Len(t, h.tasks.added, 2)
	assert.Equal(t, "call mom", h.tasks.added[1].Content)
}

func TestTasksAndDoneButton(t *testing.T) {
	h := newHarness()
	h.tasks.list = []domain.Task{
		{Content: "gym", Priority: 3},
		{Content: "read", Priority: 1, Done: true},
	}

	h.say(1, "/tasks")
	require.Len(t, h.bot.sent, 1)
	assert.Equal(t, "📝 Today's tasks:\n|01|-- gym -- 🔥🔥🔥 -- (🔲)\n|02|-- read -- 🔥 -- (✅)", h.bot.lastText())
	kb, ok := h.bot.sent[0].ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, "done:1", *kb.InlineKeyboard[0][0].CallbackData)

	h.click(1, 1, "done:1")
	assert.Equal(t, []string{"gym"}, h.tasks.done)

	var edit *tgbotapi.EditMessageTextConfig
	for _, c := range h.bot.requests {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit)
	assert.Equal(t, 1, edit.MessageID)
	assert.Contains(t, edit.Text, "|01|-- gym -- 🔥🔥🔥 -- (✅)")
	assert.Nil(t, edit.ReplyMarkup)
}

func TestReminderCommands(t *testing.T) {
	h := newHarness()

	h.say(1, "/remind_done 9:5")
	assert.Equal(t, "Please use 24-hour HH:MM, e.g. 09:00.", h.bot.lastText())

	h.say(1, "/remind_left 21:30")
	assert.Equal(t, "⏰ Last call reminder set. Next one: 2024-06-02 21:30:00", h.bot.lastText())

	h.say(1, "/remind_done")
	assert.Equal(t, pendingRemindDone, h.router.getPending(1))
	h.say(1, "08:15")
	assert.Equal(t, "⏰ Achievement reminder set. Next one: 2024-06-02 08:15:00", h.bot.lastText())

	h.say(1, "/unremind_left")
	assert.Equal(t, "Last call reminder was not scheduled ❌\nSaved entry not found ❌", h.bot.lastText())
}

func TestProfileAndRemove(t *testing.T) {
	h := newHarness()

	h.say(1, "/profile")
	assert.Equal(t, "Please set your timezone first with /tz.", h.bot.lastText())

	h.accounts.tz[1] = "Europe/Moscow"
	h.say(1, "/profile")
	assert.Contains(t, h.bot.lastText(), "⌚ Achievement Reminder Is Set For: 09:00")
	assert.Contains(t, h.bot.lastText(), "⌛ Last Call Reminder Is Set For: None set!")

	h.say(1, "/remove nothing")
	assert.Equal(t, "Nothing matched that.", h.bot.lastText())
}

func TestDeleteAccountFlow(t *testing.T) {
	h := newHarness()

	h.say(1, "/delete_account")
	assert.Equal(t, confirmDelText, h.bot.lastText())

	h.click(1, 7, cbDeleteNo)
	var del *tgbotapi.DeleteMessageConfig
	for _, c := range h.bot.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			del = &d
		}
	}
	require.NotNil(t, del)
	assert.Equal(t, 7, del.MessageID)
	assert.Empty(t, h.accounts.deleted)

	h.click(1, 7, cbDeleteYes)
	assert.Equal(t, []int64{1}, h.accounts.deleted)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Something went wrong. Please try again later.",
		userMessage(fmt.Errorf("x: %w: %w", domain.ErrStorage, errors.New("disk"))))
	assert.Equal(t, "Could not set the reminder. Please try again later.",
		userMessage(domain.ErrSchedulingFailed))
}
