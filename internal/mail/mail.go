package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Bytes renders the message as a plain-text RFC 5322 mail.
func (m Message) Bytes() []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + strings.Join(m.To, ", ") + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	if err := smtp.SendMail(addr, auth, m.From, m.To, m.Bytes()); err != nil {
		return fmt.Errorf("smtp send to %v: %w", m.To, err)
	}
	return nil
}

// LogSender writes mails to the log instead of sending them (no SMTP_HOST configured).
type LogSender struct {
	Log *slog.Logger
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("email (not sent, no SMTP host)", "to", m.To, "subject", m.Subject, "body", m.Body)
	return nil
}

// NewSender picks SMTP when a host is configured, the log sender otherwise.
func NewSender(host string, port int, user, password string, log *slog.Logger) Sender {
	if host == "" {
		return &LogSender{Log: log}
	}
	return &SMTPSender{Host: host, Port: port, User: user, Password: password}
}
