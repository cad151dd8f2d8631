// Package mail delivers the dashboard's transactional email.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	netmail "net/mail"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidAddress is returned for recipients that cannot be mailed.
var ErrInvalidAddress = errors.New("mail: invalid address")

// SMTPConfig locates the relay and the link target.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the frontend origin hosting the reset page.
	BaseURL string
	// ResetTTL is quoted in the message body.
	ResetTTL time.Duration
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

// SendPasswordReset mails a reset link carrying token to the user.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := s.ComposePasswordReset(to, name, token)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: send to relay %s: %w", addr, err)
	}
	return nil
}

// ComposePasswordReset renders the RFC 5322 message for a reset mail.
func (s *SMTPSender) ComposePasswordReset(to, name, token string) ([]byte, error) {
	rcpt, err := netmail.ParseAddress(to)
	if err != nil || strings.ContainsAny(to, "\r\n") {
		return nil, ErrInvalidAddress
	}
	name = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(name))
	if name == "" {
		name = "there"
	}
	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	ttl := s.cfg.ResetTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", rcpt.String())
	b.WriteString("Subject: Reset your password\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	b.WriteString("We received a request to reset your dashboard password.\r\n")
	fmt.Fprintf(&b, "Open the link below within %s to choose a new one:\r\n\r\n", ttl)
	fmt.Fprintf(&b, "%s\r\n\r\n", link)
	b.WriteString("If you did not ask for this, you can ignore this email.\r\n")
	return b.Bytes(), nil
}
