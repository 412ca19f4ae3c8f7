package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
	"github.com/Bedrock-the-ninth/TodoPrompt/internal/metrics"
)

type staticTasks map[int64][]domain.Task

func (s staticTasks) ListToday(_ context.Context, userID int64) ([]domain.Task, error) {
	if userID < 0 {
		return nil, domain.ErrStorage
	}
	return s[userID], nil
}

type sentMsg struct {
	chatID int64
	msg    Message
}

type fakeSender struct {
	sent []sentMsg
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, msg Message) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.sent = append(f.sent, sentMsg{chatID, msg})
	return len(f.sent), nil
}

const (
	escAchievementHeader = "🎉 Your achievement reminder for today\\! Here's your summary:\n\n"
	escLastCallHeader    = "⏰ Last call reminder\\! Tasks still remaining:\n\n"
	escNothingLogged     = "No tasks were logged today\\! Try adding some new ones\\."
)

func sampleTasks() []domain.Task {
	return []domain.Task{
		{Content: "ship v1.2!", Priority: 3, Done: true},
		{Content: "gym", Priority: 2},
		{Content: "read_book", Priority: 1, Done: true},
	}
}

func TestFormatTaskList(t *testing.T) {
	lines := FormatTaskList(sampleTasks())
	assert.Equal(t, []string{
		"|01|-- ship v1.2! -- 🔥🔥🔥 -- (✅)",
		"|02|-- gym -- 🔥🔥 -- (🔲)",
		"|03|-- read_book -- 🔥 -- (✅)",
	}, lines)

	tasks := make([]domain.Task, 10)
	for i := range tasks {
		tasks[i] = domain.Task{Content: "t", Priority: 1}
	}
	assert.Equal(t, "|10|-- t -- 🔥 -- (🔲)", FormatTaskList(tasks)[9])
}

func TestComposeText_ZeroTasks(t *testing.T) {
	got, err := ComposeText(domain.KindAchievement, nil)
	require.NoError(t, err)
	assert.Equal(t, escAchievementHeader+escNothingLogged, got)

	got, err = ComposeText(domain.KindLastCall, nil)
	require.NoError(t, err)
	assert.Equal(t, escLastCallHeader+escNothingLogged, got)
}

func TestComposeText_Achievement(t *testing.T) {
	got, err := ComposeText(domain.KindAchievement, sampleTasks())
	require.NoError(t, err)
	want := escAchievementHeader +
		"You have completed *2 / 3* tasks so far today:\n" +
		"\\|01\\|\\-\\- ship v1\\.2\\! \\-\\- 🔥🔥🔥 \\-\\- \\(✅\\)\n" +
		"\\|03\\|\\-\\- read\\_book \\-\\- 🔥 \\-\\- \\(✅\\)"
	assert.Equal(t, want, got)
}

func TestComposeText_LastCall(t *testing.T) {
	got, err := ComposeText(domain.KindLastCall, sampleTasks())
	require.NoError(t, err)
	assert.Equal(t, escLastCallHeader+"\\|02\\|\\-\\- gym \\-\\- 🔥🔥 \\-\\- \\(🔲\\)", got)

	done := []domain.Task{{Content: "a", Priority: 1, Done: true}}
	got, err = ComposeText(domain.KindLastCall, done)
	require.NoError(t, err)
	assert.Equal(t, escLastCallHeader+"Great job\\! All tasks are done for today\\!", got)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `buy \\\*milk\!`, Escape(`buy \*milk!`))
	assert.Equal(t, `a\\b`, Escape(`a\b`))

	got, err := ComposeText(domain.KindLastCall, []domain.Task{{Content: `buy \*milk`, Priority: 1}})
	require.NoError(t, err)
	assert.Contains(t, got, `buy \\\*milk`)
	assert.NotContains(t, got, `buy \\*milk`)
}

func TestComposeText_UnknownKind(t *testing.T) {
	_, err := ComposeText(domain.Kind("WEEKLY"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFire_SendsMarkdown(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(staticTasks{}, sender, zap.NewNop(), nil)

	d.Fire(context.Background(), 42, domain.KindAchievement)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].chatID)
	assert.Equal(t, ModeMarkdownV2, sender.sent[0].msg.ParseMode)
	assert.Equal(t, escAchievementHeader+escNothingLogged, sender.sent[0].msg.Text)
}

func TestFire_SwallowsFailures(t *testing.T) {
	m := metrics.MustNew(prometheus.NewRegistry())

	sender := &fakeSender{err: errors.New("Forbidden: bot was blocked by the user")}
	d := NewDispatcher(staticTasks{}, sender, zap.NewNop(), m)
	assert.NotPanics(t, func() { d.Fire(context.Background(), 42, domain.KindLastCall) })

	ok := &fakeSender{}
	d = NewDispatcher(staticTasks{}, ok, zap.NewNop(), m)
	assert.NotPanics(t, func() { d.Fire(context.Background(), -1, domain.KindLastCall) })
	assert.Empty(t, ok.sent)
}
