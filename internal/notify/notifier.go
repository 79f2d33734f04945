package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/pkg/logger"
)

// Notifier delivers a human-readable message. Delivery is best effort:
// failures are logged and never returned.
type Notifier interface {
	Send(ctx context.Context, text string)
}

const queueSize = 64

// Telegram sends markdown messages to one chat. Send only enqueues; a single
// worker talks to the API, so a slow or hanging Telegram never holds up the
// caller. A full queue drops the message.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	mu     sync.RWMutex
	closed bool
	queue  chan string
	done   chan struct{}
}

// NewTelegram does no network I/O: the token is checked with getMe by the
// worker, and a failure there is only logged.
func NewTelegram(token string, chatID int64, timeout time.Duration) *Telegram {
	bot := &tgbot.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(tgbot.APIEndpoint)
	return start(bot, chatID, true)
}

// NewTelegramWithBot wraps an already constructed bot (custom endpoint or client).
func NewTelegramWithBot(bot *tgbot.BotAPI, chatID int64) *Telegram {
	return start(bot, chatID, false)
}

func start(bot *tgbot.BotAPI, chatID int64, checkToken bool) *Telegram {
	t := &Telegram{
		bot:    bot,
		chatID: chatID,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
	go t.run(checkToken)
	return t
}

func (t *Telegram) Send(ctx context.Context, text string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- text:
	default:
		logger.Warn("[NOTIFY] telegram queue full (%d), message dropped", queueSize)
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (t *Telegram) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Telegram) run(checkToken bool) {
	defer close(t.done)
	if checkToken {
		if me, err := t.bot.GetMe(); err != nil {
			logger.Error("[NOTIFY] telegram getMe failed: %v", err)
		} else {
			logger.Info("[NOTIFY] telegram bot @%s", me.UserName)
		}
	}
	for text := range t.queue {
		t.deliver(text)
	}
}

func (t *Telegram) deliver(text string) {
	msg := tgbot.NewMessage(t.chatID, text)
	msg.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		// markdown rejected (unbalanced * or _ in a reason): retry as plain text
		logger.Warn("[NOTIFY] telegram markdown send failed: %v", err)
		msg.ParseMode = ""
		if _, err := t.bot.Send(msg); err != nil {
			logger.Error("[NOTIFY] telegram send failed: %v", err)
		}
	}
}

// Stdout prints messages, used when no Telegram token is configured.
type Stdout struct {
	mu sync.Mutex
}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Send(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(os.Stdout, text)
	_, _ = fmt.Fprintln(os.Stdout)
}
