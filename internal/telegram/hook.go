package telegram

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	hookQueueSize = 16
	// не больше 5 сообщений подряд, дальше одно в 30 секунд
	hookBurst    = 5
	hookInterval = 30 * time.Second
)

// Hook дублирует записи Error и выше в telegram. Отправка идет в одной горутине,
// сверх лимита записи отбрасываются, их количество приходит отдельным сообщением.
type Hook struct {
	send    func(text string) error
	levels  []logrus.Level
	limiter *rate.Limiter

	mu      sync.Mutex
	queue   chan string
	dropped int
	closed  bool
	done    chan struct{}
}

func NewHook(b *Bot) *Hook {
	return newHook(b.SendMessage, rate.NewLimiter(rate.Every(hookInterval), hookBurst))
}

func newHook(send func(text string) error, limiter *rate.Limiter) *Hook {
	h := &Hook{
		send: send,
		levels: []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		},
		limiter: limiter,
		queue:   make(chan string, hookQueueSize),
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	text := format(entry)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	if !h.limiter.Allow() {
		h.dropped++
		return nil
	}
	select {
	case h.queue <- text:
	default:
		h.dropped++
	}
	return nil
}

func (h *Hook) loop() {
	defer close(h.done)
	for text := range h.queue {
		_ = h.send(text)
	}
}

// Close отправляет оставшиеся сообщения и сводку по отброшенным.
// Ждет не дольше timeout, возвращает false если не успел.
func (h *Hook) Close(timeout time.Duration) bool {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		if h.dropped > 0 {
			summary := fmt.Sprintf("Пропущено сообщений об ошибках: %d, подробности в логе", h.dropped)
			select {
			case h.queue <- summary:
			default:
			}
		}
		close(h.queue)
	}
	h.mu.Unlock()

	select {
	case <-h.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func format(entry *logrus.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(entry.Level.String()), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, entry.Data[k])
	}
	return b.String()
}
