package resume

import (
	"fmt"
	"net/smtp"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/pkg/logger"
)

// Notifier delivers a message to a candidate
type Notifier interface {
	Notify(to, subject, body string) error
}

// SMTPNotifier sends candidate email through an SMTP relay
type SMTPNotifier struct {
	host     string
	port     int
	sender   string
	password string
	logger   *logger.Logger
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(cfg config.SMTPConfig, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		sender:   cfg.Sender,
		password: cfg.Password,
		logger:   log.Named("smtp-notifier"),
	}
}

// Notify sends one plain-text email. With no sender credentials
// configured, notification is silently skipped.
func (n *SMTPNotifier) Notify(to, subject, body string) error {
	if n.sender == "" || n.password == "" {
		n.logger.Debug("SMTP credentials not configured, skipping notification",
			logger.String("to", to))
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.sender, to, subject, body)
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.sender, n.password, n.host)

	if err := smtp.SendMail(addr, auth, n.sender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send notification to %s: %w", to, err)
	}

	n.logger.Info("Notification sent", logger.String("to", to))
	return nil
}
