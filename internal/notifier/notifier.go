// Package notifier delivers one-time codes and other short messages to
// users. Senders report delivery through DeliveryResult; callers in the OTP
// flow only need the attempt, never the success.
package notifier

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/logging"
	"supplierhub/internal/metrics"
)

type DeliveryResult struct {
	OK     bool
	Detail string
}

type Notifier interface {
	Send(ctx context.Context, destination, message string) (DeliveryResult, error)
}

// Log writes messages to the application log instead of delivering them.
type Log struct{}

func (Log) Send(_ context.Context, destination, message string) (DeliveryResult, error) {
	log.Info().Str("destination", logging.MaskPhone(destination)).Int("length", len(message)).Msg("Notification logged, not delivered")
	metrics.NotificationsTotal.WithLabelValues("log", "success").Inc()
	return DeliveryResult{OK: true, Detail: "logged"}, nil
}

// Multi sends to every notifier in order. The result is OK if any of them
// delivered; the returned error is the first one encountered.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, destination, message string) (DeliveryResult, error) {
	var (
		ok       bool
		firstErr error
		details  []string
	)
	for _, n := range m {
		res, err := n.Send(ctx, destination, message)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if res.OK {
			ok = true
		}
		if res.Detail != "" {
			details = append(details, res.Detail)
		}
	}
	return DeliveryResult{OK: ok, Detail: strings.Join(details, "; ")}, firstErr
}
