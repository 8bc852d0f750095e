package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"alertTradeBot/internal/ports"
)

// Source implements ports.AlertSource on top of Telegram long polling.
// Message and channel-post texts from the configured chat are forwarded
// in arrival order to a single consumer. The send blocks when the
// consumer lags, so ordering is preserved end to end.
type Source struct {
	bot     *telego.Bot
	chatID  int64 // 0 accepts alerts from any chat
	logger  ports.Logger
	alerts  chan string
	cancel  context.CancelFunc
	stopped chan struct{}
}

// SourceConfig holds configuration for the alert source.
type SourceConfig struct {
	Bot    *telego.Bot
	ChatID int64
	Logger ports.Logger
}

// NewSource starts long polling and returns the running source.
func NewSource(ctx context.Context, cfg SourceConfig) (*Source, error) {
	if cfg.Bot == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("bot and logger are required for telegram source")
	}

	runCtx, cancel := context.WithCancel(ctx)
	updates, err := cfg.Bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start telegram long polling: %w", err)
	}

	s := &Source{
		bot:     cfg.Bot,
		chatID:  cfg.ChatID,
		logger:  cfg.Logger,
		alerts:  make(chan string),
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go s.run(runCtx, updates)
	return s, nil
}

func (s *Source) run(ctx context.Context, updates <-chan telego.Update) {
	defer close(s.stopped)
	defer close(s.alerts)

	for update := range updates {
		var msg *telego.Message
		switch {
		case update.Message != nil:
			msg = update.Message
		case update.ChannelPost != nil:
			msg = update.ChannelPost
		}
		if msg == nil || msg.Text == "" {
			continue
		}
		if s.chatID != 0 && msg.Chat.ID != s.chatID {
			s.logger.Debug(ctx, "Ignoring message from foreign chat", map[string]interface{}{"chatID": msg.Chat.ID})
			continue
		}

		select {
		case s.alerts <- msg.Text:
		case <-ctx.Done():
			return
		}
	}
}

// Alerts returns the ordered stream of raw alert texts.
func (s *Source) Alerts() <-chan string {
	return s.alerts
}

// Close stops long polling and waits for the forwarding goroutine.
func (s *Source) Close() error {
	s.cancel()
	<-s.stopped
	return nil
}
