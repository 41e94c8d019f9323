package telegram

import (
	"strings"
	"testing"

	"PimSync/pkg/logging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type senderMock struct {
	messages []tgbotapi.MessageConfig
	err      error
}

func (s *senderMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.messages = append(s.messages, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestSendMessage(t *testing.T) {
	mock := &senderMock{}
	b := &Bot{sender: mock, chatID: 42, logger: logging.Discard()}

	require.NoError(t, b.SendMessage("sync completed"))
	require.Len(t, mock.messages, 1)
	assert.Equal(t, int64(42), mock.messages[0].ChatID)
	assert.Equal(t, "sync completed", mock.messages[0].Text)
}

func TestSendMessageSplitsLongText(t *testing.T) {
	mock := &senderMock{}
	b := &Bot{sender: mock, chatID: 1, logger: logging.Discard()}

	require.NoError(t, b.SendMessage(strings.Repeat("я", maxMessageLength+10)))
	require.Len(t, mock.messages, 2)
	assert.Equal(t, 10, len([]rune(mock.messages[1].Text)))
}

func TestSendMessageErrors(t *testing.T) {
	b := &Bot{sender: &senderMock{}, logger: logging.Discard()}
	assert.Error(t, b.SendMessage("no chat"))

	b = &Bot{sender: &senderMock{err: errors.New("network down")}, chatID: 1, logger: logging.Discard()}
	err := b.SendMessage("text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestReply(t *testing.T) {
	b := &Bot{logger: logging.Discard()}

	assert.Equal(t, "chat id: 15", b.reply(15, "/chatid", nil))
	assert.Equal(t, "ok", b.reply(15, " /status ", func() string { return "ok" }))
	assert.Equal(t, "нет данных", b.reply(15, "/status", nil))
	assert.Empty(t, b.reply(15, "hello", nil))
}

