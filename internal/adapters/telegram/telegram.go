// Package telegram adapts Telegram to the bot's alert-source and
// notification ports using the telego client.
package telegram

import (
	"fmt"

	"github.com/mymmrac/telego"
)

// NewBot creates the shared telego client used by the alert source and
// the notifier. Token validation happens lazily on the first API call.
func NewBot(token string) (*telego.Bot, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}
