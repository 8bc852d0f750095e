package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"alertTradeBot/internal/ports"
)

// Notifier implements ports.Notifier by sending messages to a Telegram
// chat. When disabled it swallows messages, which is how notification
// suppression is configured.
type Notifier struct {
	bot     *telego.Bot
	chatID  telego.ChatID
	logger  ports.Logger
	enabled bool
}

// NotifierConfig holds configuration for the notifier.
type NotifierConfig struct {
	Bot     *telego.Bot
	ChatID  int64
	Logger  ports.Logger
	Enabled bool
}

// NewNotifier creates a Telegram notifier.
func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for telegram notifier")
	}
	if cfg.Enabled && (cfg.Bot == nil || cfg.ChatID == 0) {
		return nil, fmt.Errorf("bot and chat id are required when notifications are enabled")
	}
	return &Notifier{
		bot:     cfg.Bot,
		chatID:  tu.ID(cfg.ChatID),
		logger:  cfg.Logger,
		enabled: cfg.Enabled,
	}, nil
}

// SendMessage delivers one text message to the configured chat.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if !n.enabled {
		n.logger.Debug(ctx, "Notifications suppressed, dropping message")
		return nil
	}
	if _, err := n.bot.SendMessage(ctx, tu.Message(n.chatID, text)); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrNotifyFailed, err)
	}
	return nil
}
