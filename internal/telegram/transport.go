package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Bedrock-the-ninth/TodoPrompt/internal/notify"
)

// BotAPI is the subset of *tgbotapi.BotAPI used here.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport sends, edits and deletes chat messages. It satisfies notify.Sender.
type Transport struct {
	bot BotAPI
}

func NewTransport(bot BotAPI) *Transport {
	return &Transport{bot: bot}
}

// SendMessage sends msg and returns the new message id.
func (t *Transport) SendMessage(ctx context.Context, chatID int64, msg notify.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.ParseMode = msg.ParseMode
	if msg.Markup != nil {
		out.ReplyMarkup = msg.Markup
	}
	sent, err := t.bot.Send(out)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text (and inline keyboard, if any) of a message.
func (t *Transport) EditMessage(ctx context.Context, chatID int64, messageID int, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
	edit.ParseMode = msg.ParseMode
	switch kb := msg.Markup.(type) {
	case tgbotapi.InlineKeyboardMarkup:
		edit.ReplyMarkup = &kb
	case *tgbotapi.InlineKeyboardMarkup:
		edit.ReplyMarkup = kb
	}
	_, err := t.bot.Request(edit)
	return err
}

// DeleteMessage removes a message from the chat.
func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// AnswerCallback acknowledges an inline button press.
func (t *Transport) AnswerCallback(id, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}
