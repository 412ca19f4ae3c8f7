package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/domain"
)

const (
	achievementHeader = "🎉 Your achievement reminder for today! Here's your summary:\n\n"
	lastCallHeader    = "⏰ Last call reminder! Tasks still remaining:\n\n"
	nothingLogged     = "No tasks were logged today! Try adding some new ones."
	allDone           = "Great job! All tasks are done for today!"
)

// Escape neutralises MarkdownV2 control characters. EscapeText leaves the
// backslash itself alone, so it is doubled first.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ReplaceAll(s, `\`, `\\`))
}

// FormatTask renders one list line: |01|-- content -- 🔥🔥 -- (🔲)
func FormatTask(pos int, t domain.Task) string {
	mark := "🔲"
	if t.Done {
		mark = "✅"
	}
	return fmt.Sprintf("|%02d|-- %s -- %s -- (%s)", pos, t.Content, strings.Repeat("🔥", t.Priority), mark)
}

// FormatTaskList renders tasks as plain lines, numbered from 1.
func FormatTaskList(tasks []domain.Task) []string {
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		lines = append(lines, FormatTask(i+1, t))
	}
	return lines
}

// ComposeText builds the MarkdownV2 body of a reminder from today's tasks.
// Numbering follows the full list so positions match /tasks.
func ComposeText(kind domain.Kind, today []domain.Task) (string, error) {
	var b strings.Builder
	switch kind {
	case domain.KindAchievement:
		b.WriteString(Escape(achievementHeader))
		if len(today) == 0 {
			b.WriteString(Escape(nothingLogged))
			return b.String(), nil
		}
		var done []string
		for i, t := range today {
			if t.Done {
				done = append(done, Escape(FormatTask(i+1, t)))
			}
		}
		fmt.Fprintf(&b, "You have completed *%d / %d* tasks so far today:", len(done), len(today))
		if len(done) > 0 {
			b.WriteString("\n")
			b.WriteString(strings.Join(done, "\n"))
		}

	case domain.KindLastCall:
		b.WriteString(Escape(lastCallHeader))
		if len(today) == 0 {
			b.WriteString(Escape(nothingLogged))
			return b.String(), nil
		}
		var left []string
		for i, t := range today {
			if !t.Done {
				left = append(left, Escape(FormatTask(i+1, t)))
			}
		}
		if len(left) == 0 {
			b.WriteString(Escape(allDone))
		} else {
			b.WriteString(strings.Join(left, "\n"))
		}

	default:
		return "", fmt.Errorf("%w: unknown reminder kind %q", domain.ErrInvalidInput, kind)
	}
	return b.String(), nil
}
