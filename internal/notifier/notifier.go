package notifier

import "context"

// Notifier delivers a plain-text alert to some external channel.
// Implementations must never panic; delivery failure is the boolean.
type Notifier interface {
	Send(ctx context.Context, message string) bool
}

// Noop discards every message, reporting success. Used when no channel
// is configured so the scan pipeline stays exercised end to end.
type Noop struct{}

func (Noop) Send(context.Context, string) bool { return true }
