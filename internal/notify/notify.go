package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nudge-sh/nudge/internal/parse"
)

// Notifier delivers a user-visible notification. Delivery failure is
// non-fatal everywhere: the reminder state is committed before delivery
// and is never rolled back.
type Notifier interface {
	Deliver(ctx context.Context, title, body string) error
}

// Compose builds the notification title and body for a task reminder.
func Compose(task parse.TaskItem) (title, body string) {
	title = "Task Reminder"
	from := task.NoteTitle
	if task.SectionHeader != "" && task.SectionHeader != parse.DefaultSection {
		from += " (" + task.SectionHeader + ")"
	}
	if from != "" {
		title = fmt.Sprintf("Task Reminder — %s", from)
	}
	return title, task.Text
}

// osaQuote escapes a string for interpolation into an AppleScript string
// literal.
func osaQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
