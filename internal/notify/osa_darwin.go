//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// osaNotifier posts notifications through Notification Center via
// osascript, so the binary needs no framework bindings.
type osaNotifier struct{}

// New returns the platform notifier.
func New() Notifier {
	return osaNotifier{}
}

func (osaNotifier) Deliver(ctx context.Context, title, body string) error {
	script := fmt.Sprintf("display notification %s with title %s sound name \"default\"",
		osaQuote(body), osaQuote(title))
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
