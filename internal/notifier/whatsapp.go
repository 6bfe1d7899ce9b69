package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"supplierhub/internal/logging"
	"supplierhub/internal/metrics"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // messages per second
)

// WhatsApp posts messages to an HTTP WhatsApp gateway.
type WhatsApp struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type WhatsAppOption func(*WhatsApp)

func WithHTTPClient(c *http.Client) WhatsAppOption {
	return func(w *WhatsApp) {
		w.httpClient = c
	}
}

func WithRateLimit(perSecond float64) WhatsAppOption {
	return func(w *WhatsApp) {
		if perSecond <= 0 {
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewWhatsApp(url, apiKey string, opts ...WhatsAppOption) *WhatsApp {
	w := &WhatsApp{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type whatsAppMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (w *WhatsApp) Send(ctx context.Context, destination, message string) (DeliveryResult, error) {
	res, err := w.send(ctx, destination, message)
	status := "success"
	if err != nil || !res.OK {
		status = "failed"
		log.Warn().Err(err).Str("phone", logging.MaskPhone(destination)).Str("detail", res.Detail).Msg("WhatsApp delivery failed")
	}
	metrics.NotificationsTotal.WithLabelValues("whatsapp", status).Inc()
	return res, err
}

func (w *WhatsApp) send(ctx context.Context, destination, message string) (DeliveryResult, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return DeliveryResult{Detail: "throttled"}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(whatsAppMessage{To: strings.TrimPrefix(destination, "+"), Message: message})
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return DeliveryResult{Detail: "gateway unreachable"}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return DeliveryResult{Detail: fmt.Sprintf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))}, nil
	}
	return DeliveryResult{OK: true, Detail: "whatsapp"}, nil
}
