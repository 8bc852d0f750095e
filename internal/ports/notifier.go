package ports

import "context"

// Notifier delivers human-readable status messages to the outbound
// notification sink. Implementations decide the channel (chat, webhook).
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}
