//go:build !darwin

package notify

import (
	"context"
	"log/slog"
)

// logNotifier stands in on platforms without a native notification path.
type logNotifier struct{}

// New returns the platform notifier.
func New() Notifier {
	return logNotifier{}
}

func (logNotifier) Deliver(ctx context.Context, title, body string) error {
	slog.Info("notification", "title", title, "body", body)
	return nil
}
