// Package notify delivers attendance notifications. Delivery failures are
// logged and never affect attendance state.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Kind classifies a notification.
type Kind string

const (
	KindEntry     Kind = "entry"
	KindExit      Kind = "exit"
	KindLate      Kind = "late"
	KindEarlyExit Kind = "early_exit"
)

// Event carries the context for one notification.
type Event struct {
	Kind     Kind
	Employee store.Employee
	At       time.Time
	Detail   string // human-readable late/early message, may be empty
}

// Notifier delivers one notification.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// RenderTemplate fills the {{name}}, {{time}} and {{detail}} placeholders
// of a message template.
func RenderTemplate(tmpl string, ev Event) string {
	r := strings.NewReplacer(
		"{{name}}", ev.Employee.Name,
		"{{time}}", ev.At.Format("15:04"),
		"{{detail}}", ev.Detail,
	)
	return r.Replace(tmpl)
}
