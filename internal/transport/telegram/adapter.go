// Package telegram is the chat transport: a long-polling bot adapter that
// implements transport.Sender for outbound delivery, plus the inbound
// command, text and callback handlers.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"catbot/pkg/logx"
)

// Config holds transport settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter runs the bot over long polling and implements transport.Sender.
type Adapter struct {
	bot *tele.Bot
	log logx.Logger

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{bot: b, log: log}, nil
}

// Bot exposes the underlying bot for handler registration.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

// Start begins long polling and blocks until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.runMu.Unlock()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.bot.Stop()
		case <-stopped:
		}
	}()

	a.log.Info("polling started")
	a.bot.Start()
	close(stopped)
	a.log.Info("polling stopped")

	a.runMu.Lock()
	a.running = false
	a.runMu.Unlock()
}

// PublishCommands updates the bot command menu. Best-effort: a failure is
// logged, the bot works without a menu.
func (a *Adapter) PublishCommands() {
	err := a.bot.SetCommands([]tele.Command{
		{Text: "start", Description: "Adopt a cat or show its status"},
		{Text: "connect", Description: "Connect to a friend's cat"},
		{Text: "message", Description: "Send a message to the other human"},
	})
	if err != nil {
		a.log.Warn("set commands failed", logx.Err(err))
	}
}

// SendMessage delivers text to a user's private chat.
func (a *Adapter) SendMessage(ctx context.Context, userID int64, text string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(userID), text)
	return err
}

// SendPhoto delivers an image from disk with a caption.
func (a *Adapter) SendPhoto(ctx context.Context, userID int64, path, caption string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.FromDisk(path), Caption: caption}
	_, err := a.bot.Send(tele.ChatID(userID), photo)
	return err
}

// telebot calls take no context; check for cancellation before the blocking
// API call instead.
func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
