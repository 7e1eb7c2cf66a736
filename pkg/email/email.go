// Package email is a thin SMTP send helper used by the email channel
// executor.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Sender holds SMTP server settings shared by all sends.
type Sender struct {
	Server   string
	Port     int
	Username string
	Password string
	FromName string
}

// Send delivers one plain-text message.
func (s Sender) Send(to, subject, body string) error {
	if !strings.Contains(to, "@") {
		return fmt.Errorf("invalid email address: %s", to)
	}
	if s.Server == "" || s.Port == 0 || s.Username == "" {
		return fmt.Errorf("smtp sender not configured")
	}

	from := s.Username
	if s.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.FromName, s.Username)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", from, to, subject, body))
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Server)
	addr := fmt.Sprintf("%s:%d", s.Server, s.Port)
	return smtp.SendMail(addr, auth, s.Username, []string{to}, msg)
}
