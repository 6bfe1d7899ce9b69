package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"supplierhub/internal/metrics"
)

const emailSubject = "Your verification code"

// Dialer is the part of gomail.Dialer the Email notifier uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email delivers messages over SMTP.
type Email struct {
	from   string
	dialer Dialer
}

func NewEmail(host string, port int, username, password string) *Email {
	return NewEmailWithDialer(username, gomail.NewDialer(host, port, username, password))
}

func NewEmailWithDialer(from string, d Dialer) *Email {
	return &Email{from: from, dialer: d}
}

func (e *Email) Send(_ context.Context, destination, message string) (DeliveryResult, error) {
	if !strings.Contains(destination, "@") {
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return DeliveryResult{Detail: "not an email address"}, nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", emailSubject)
	m.SetBody("text/plain", message)

	if err := e.dialer.DialAndSend(m); err != nil {
		log.Warn().Err(err).Msg("Email delivery failed")
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return DeliveryResult{Detail: "smtp error"}, fmt.Errorf("failed to send email: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("email", "success").Inc()
	return DeliveryResult{OK: true, Detail: "email"}, nil
}
