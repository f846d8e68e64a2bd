package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/pasta/tmpc/internal/upload"
)

// Message is an incoming chat message reduced to what handlers read.
type Message struct {
	ChatID  int64
	ID      int
	Text    string
	ReplyTo *Message
	Audio   *upload.Audio
}

// Callback is a pressed inline button. MessageID is zero when the message
// carrying the keyboard is no longer accessible.
type Callback struct {
	ID        string
	Data      string
	ChatID    int64
	MessageID int
}

type Button struct {
	Text string
	Data string
}

// Outgoing carries the optional parts of a sent message.
type Outgoing struct {
	ReplyTo  int
	Markdown bool
	Keyboard [][]Button
}

type SendOption func(*Outgoing)

// AsReplyTo threads the message under messageID.
func AsReplyTo(messageID int) SendOption {
	return func(o *Outgoing) {
		o.ReplyTo = messageID
	}
}

// AsMarkdown sends the text as MarkdownV2.
func AsMarkdown() SendOption {
	return func(o *Outgoing) {
		o.Markdown = true
	}
}

// WithKeyboard attaches an inline keyboard.
func WithKeyboard(rows [][]Button) SendOption {
	return func(o *Outgoing) {
		o.Keyboard = rows
	}
}

// Messenger is the outbound side of the chat platform.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, opts ...SendOption) error
	React(ctx context.Context, chatID int64, messageID int, emoji string) error
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID string) error
	SetCommands(ctx context.Context, cmds []Command) error
}

// TelegramAPI is the subset of *telego.Bot used for replies.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SetMessageReaction(ctx context.Context, params *telego.SetMessageReactionParams) error
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error
}

// Telegram sends through the bot API.
type Telegram struct {
	api TelegramAPI
}

func NewTelegram(api TelegramAPI) *Telegram {
	return &Telegram{api: api}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string, opts ...SendOption) error {
	var o Outgoing
	for _, opt := range opts {
		opt(&o)
	}

	params := tu.Message(tu.ID(chatID), text)
	if o.Markdown {
		params = params.WithParseMode(telego.ModeMarkdownV2)
	}
	if o.ReplyTo != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{MessageID: o.ReplyTo})
	}
	if len(o.Keyboard) > 0 {
		params = params.WithReplyMarkup(inlineKeyboard(o.Keyboard))
	}
	_, err := t.api.SendMessage(ctx, params)
	return err
}

func inlineKeyboard(rows [][]Button) *telego.InlineKeyboardMarkup {
	out := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tu.InlineKeyboardButton(btn.Text).WithCallbackData(btn.Data))
		}
		out = append(out, tu.InlineKeyboardRow(buttons...))
	}
	return tu.InlineKeyboard(out...)
}

func (t *Telegram) React(ctx context.Context, chatID int64, messageID int, emoji string) error {
	return t.api.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Reaction:  []telego.ReactionType{&telego.ReactionTypeEmoji{Type: "emoji", Emoji: emoji}},
	})
}

func (t *Telegram) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := t.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
		Text:      text,
	})
	return err
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID string) error {
	return t.api.AnswerCallbackQuery(ctx, tu.CallbackQuery(callbackID))
}

func (t *Telegram) SetCommands(ctx context.Context, cmds []Command) error {
	list := make([]telego.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		list = append(list, telego.BotCommand{Command: c.Name, Description: c.Description})
	}
	return t.api.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: list})
}

// messageFromTelego converts an incoming message. Captions count as text so
// a command can ride on an audio upload.
func messageFromTelego(m *telego.Message) *Message {
	if m == nil {
		return nil
	}
	msg := &Message{
		ChatID: m.Chat.ID,
		ID:     m.MessageID,
		Text:   m.Text,
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.Audio != nil {
		msg.Audio = &upload.Audio{
			FileID:   m.Audio.FileID,
			FileName: m.Audio.FileName,
			Size:     m.Audio.FileSize,
		}
	}
	if m.ReplyToMessage != nil {
		msg.ReplyTo = messageFromTelego(m.ReplyToMessage)
	}
	return msg
}

func callbackFromTelego(q *telego.CallbackQuery) *Callback {
	cb := &Callback{ID: q.ID, Data: q.Data}
	if q.Message != nil && q.Message.IsAccessible() {
		cb.ChatID = q.Message.GetChat().ID
		cb.MessageID = q.Message.GetMessageID()
	}
	return cb
}
