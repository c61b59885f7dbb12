package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/pkg/logger"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends mail through an authenticated SMTP relay. Without
// credentials it runs in dev mode and only logs the message.
type SMTPSender struct {
	cfg      config.SMTPConfig
	sendMail sendFunc
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) devMode() bool {
	return s.cfg.Host == "" || s.cfg.Email == "" || s.cfg.Password == ""
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.devMode() {
		logger.Info("[DEV MODE] email not sent", map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return nil
	}

	msg := buildMessage(fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.Email), to, subject, htmlBody)
	auth := smtp.PlainAuth("", s.cfg.Email, s.cfg.Password, s.cfg.Host)
	if err := s.sendMail(s.cfg.Host+":"+s.cfg.Port, auth, s.cfg.Email, []string{to}, msg); err != nil {
		logger.Error("Failed to send email", err, map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("Email sent", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
