package transport

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ollkyy/scoutbot/internal/models"
)

// Telegram adapts the Telegram Bot API (long polling) to the Adapter
// contract. Callback queries are acked immediately so the client stops
// showing a spinner even if downstream handling fails.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	events chan Event
}

func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	t := &Telegram{bot: bot, events: make(chan Event, 64)}
	go t.poll()
	return t, nil
}

func (t *Telegram) Username() string { return t.bot.Self.UserName }

func (t *Telegram) poll() {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	for upd := range t.bot.GetUpdatesChan(cfg) {
		if ev, ok := t.translate(upd); ok {
			t.events <- ev
		}
	}
	close(t.events)
}

func (t *Telegram) translate(upd tgbotapi.Update) (Event, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if _, err := t.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			log.Printf("telegram: ack callback: %v", err)
		}
		ev := Event{Kind: EventCallback, From: models.Identity(cq.From.ID), Data: cq.Data}
		if cq.Message != nil {
			ev.Ref = MessageRef{Chat: models.Identity(cq.Message.Chat.ID), Message: cq.Message.MessageID}
		}
		return ev, true
	case upd.Message != nil && upd.Message.IsCommand():
		return Event{
			Kind:    EventCommand,
			From:    models.Identity(upd.Message.From.ID),
			Command: upd.Message.Command(),
			Text:    upd.Message.CommandArguments(),
		}, true
	case upd.Message != nil:
		return Event{
			Kind: EventText,
			From: models.Identity(upd.Message.From.ID),
			Text: upd.Message.Text,
		}, true
	}
	return Event{}, false
}

func (t *Telegram) Send(chat models.Identity, text string, buttons [][]Button) (MessageRef, error) {
	msg := tgbotapi.NewMessage(int64(chat), text)
	if len(buttons) > 0 {
		msg.ReplyMarkup = markup(buttons)
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{Chat: chat, Message: sent.MessageID}, nil
}

func (t *Telegram) EditText(ref MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(int64(ref.Chat), ref.Message, text)
	_, err := t.bot.Send(edit)
	return err
}

func (t *Telegram) ClearButtons(ref MessageRef) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(int64(ref.Chat), ref.Message,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, err := t.bot.Send(edit)
	return err
}

func (t *Telegram) Events() <-chan Event { return t.events }

func markup(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
