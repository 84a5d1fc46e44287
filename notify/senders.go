package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

// LogSender writes notifications to the structured log instead of sending.
type LogSender struct {
	Observer core.Observer
}

func (s LogSender) Send(ctx context.Context, notification core.Notification) error {
	fields := map[string]any{
		"kind":         string(notification.Kind),
		"dispatch_key": notification.DispatchKey,
		"recipient":    notification.Recipient,
		"subject":      notification.Subject,
	}
	for key, value := range notification.Fields {
		fields["field_"+key] = value
	}
	s.Observer.Info(ctx, "notification", fields)
	return nil
}

type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(cfg core.NotificationConfig) *SMTPSender {
	return &SMTPSender{
		Host:     strings.TrimSpace(cfg.SMTPHost),
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     strings.TrimSpace(cfg.From),
	}
}

func (s *SMTPSender) Send(_ context.Context, notification core.Notification) error {
	if s == nil || s.Host == "" || s.From == "" {
		return fmt.Errorf("notify: smtp sender is not configured")
	}
	message := email.NewEmail()
	message.From = s.From
	message.To = []string{notification.Recipient}
	message.Subject = notification.Subject
	message.Text = []byte(RenderText(notification))

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	return message.Send(fmt.Sprintf("%s:%d", s.Host, s.Port), auth)
}

var (
	_ core.NotificationSender = LogSender{}
	_ core.NotificationSender = (*SMTPSender)(nil)
)
