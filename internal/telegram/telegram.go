package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// максимальная длина сообщения telegram
const maxMessageLength = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	chatID int64
	logger logrus.FieldLogger
}

// NewBot подключается к telegram
func NewBot(token string, chatID int64, logger logrus.FieldLogger) (*Bot, error) {
	logger.Debug("Start telegram.NewBot")
	defer logger.Debug("End telegram.NewBot")

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed tgbotapi.NewBotAPI")
	}
	logger.Infof("Telegram бот авторизован: %s", api.Self.UserName)

	return &Bot{api: api, sender: api, chatID: chatID, logger: logger}, nil
}

// SendMessage отправляет текст в настроенный чат. Длинные сообщения режутся на части.
func (b *Bot) SendMessage(text string) error {
	if b.chatID == 0 {
		return errors.New("telegram chat id is not configured")
	}

	for _, part := range split(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(b.chatID, part)
		if _, err := b.sender.Send(msg); err != nil {
			return errors.Wrap(err, "failed bot.Send")
		}
	}
	return nil
}

// Run отвечает на команды в чате до отмены контекста.
// /chatid возвращает id чата для настройки TELEGRAM.ChatID, /status - переданную строку статуса.
func (b *Bot) Run(ctx context.Context, status func() string) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return errors.Wrap(err, "failed bot.GetUpdatesChan")
	}
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			reply := b.reply(update.Message.Chat.ID, update.Message.Text, status)
			if reply == "" {
				continue
			}
			if _, err := b.sender.Send(tgbotapi.NewMessage(update.Message.Chat.ID, reply)); err != nil {
				b.logger.Errorf("failed bot.Send, error: %v", err)
			}
		}
	}
}

func (b *Bot) reply(chatID int64, text string, status func() string) string {
	switch strings.TrimSpace(text) {
	case "/chatid":
		return fmt.Sprintf("chat id: %d", chatID)
	case "/status":
		if status == nil {
			return "нет данных"
		}
		return status()
	}
	return ""
}

func split(text string, size int) []string {
	r := []rune(text)
	if len(r) <= size {
		return []string{text}
	}

	var parts []string
	for len(r) > 0 {
		n := size
		if len(r) < n {
			n = len(r)
		}
		parts = append(parts, string(r[:n]))
		r = r[n:]
	}
	return parts
}
