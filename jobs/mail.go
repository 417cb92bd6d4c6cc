package jobs

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Mailer delivers a plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an unauthenticated relay such as Mailpit.
type SMTPMailer struct {
	Host string
	Port int
	From string
}

// Send writes a single message to the relay.
func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	if err := smtp.SendMail(addr, nil, m.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("jobs: smtp send: %w", err)
	}
	return nil
}
