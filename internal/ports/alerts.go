package ports

// AlertSource is the inbound channel of free-text trade alerts.
// Exactly one consumer reads Alerts(); arrival order is preserved.
// The channel is closed when the source shuts down.
type AlertSource interface {
	Alerts() <-chan string
	Close() error
}
