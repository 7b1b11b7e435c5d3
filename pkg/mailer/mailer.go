// Package mailer sends transactional email over SMTP. Services depend on
// the Sender interface so tests can capture outgoing mail.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
)

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through a plain SMTP relay with optional auth.
type SMTPSender struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// NewSMTPSender builds a sender from config. Host is required.
func NewSMTPSender(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &SMTPSender{cfg: cfg, logg: logg}, nil
}

// Send delivers the message. Errors are returned to the caller; callers that
// treat email as best-effort log and continue.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("at least one recipient is required")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	body := buildMIME(s.cfg.DefaultFrom, msg)

	if err := smtp.SendMail(addr, auth, s.cfg.DefaultFrom, msg.To, body); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"recipients": len(msg.To),
			"subject":    msg.Subject,
		})
		s.logg.Info(logCtx, "email sent")
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
