package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// SMTPNotifier emails notifications through a plain SMTP relay.
type SMTPNotifier struct {
	addr      string
	from      string
	templates map[string]string
	send      func(addr string, from string, to []string, msg []byte) error
}

// NewSMTP creates an email notifier. templates maps notification kinds to
// message bodies with {{name}}/{{time}}/{{detail}} placeholders.
func NewSMTP(addr, from string, templates map[string]string) *SMTPNotifier {
	return &SMTPNotifier{
		addr:      addr,
		from:      from,
		templates: templates,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Notify implements Notifier. Employees without an email-shaped employee ID
// are skipped silently; the recipient convention is employee_id@domain
// handled by the relay.
func (n *SMTPNotifier) Notify(ctx context.Context, ev Event) error {
	tmpl, ok := n.templates[string(ev.Kind)]
	if !ok {
		return fmt.Errorf("no template for notification kind %q", ev.Kind)
	}

	body := RenderTemplate(tmpl, ev)
	msg := fmt.Sprintf("From: %s\r\nSubject: Attendance %s\r\n\r\n%s\r\n", n.from, ev.Kind, body)
	to := []string{ev.Employee.EmployeeID}

	if err := n.send(n.addr, n.from, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending notification mail: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the process log. Used when no SMTP
// relay is configured and in development.
type LogNotifier struct {
	templates map[string]string
}

// NewLog creates a log-only notifier.
func NewLog(templates map[string]string) *LogNotifier {
	return &LogNotifier{templates: templates}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	tmpl, ok := n.templates[string(ev.Kind)]
	if !ok {
		log.Printf("notification (%s) for %s", ev.Kind, ev.Employee.EmployeeID)
		return nil
	}
	log.Printf("notification (%s): %s", ev.Kind, RenderTemplate(tmpl, ev))
	return nil
}
