package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestWhatsApp_Send(t *testing.T) {
	var got whatsAppMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wa := NewWhatsApp(srv.URL, "secret", WithHTTPClient(srv.Client()))
	res, err := wa.Send(context.Background(), "+6281234567890", "Your code is 123456")

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "6281234567890", got.To)
	assert.Equal(t, "Your code is 123456", got.Message)
}

func TestWhatsApp_GatewayRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	res, err := NewWhatsApp(srv.URL, "").Send(context.Background(), "+6281234567890", "hi")

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Detail, "402")
	assert.Contains(t, res.Detail, "quota exceeded")
}

func TestWhatsApp_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := NewWhatsApp(url, "").Send(context.Background(), "+6281234567890", "hi")

	assert.Error(t, err)
	assert.False(t, res.OK)
}

func TestWhatsApp_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wa := NewWhatsApp("http://127.0.0.1:1", "", WithRateLimit(0.001))
	// Drain the single burst token so Wait must block on the cancelled ctx.
	wa.limiter.Allow()

	_, err := wa.Send(ctx, "+6281234567890", "hi")
	assert.Error(t, err)
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestEmail_Send(t *testing.T) {
	d := &fakeDialer{}
	e := NewEmailWithDialer("noreply@example.com", d)

	res, err := e.Send(context.Background(), "owner@example.com", "Your code is 123456")
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"owner@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{emailSubject}, d.sent[0].GetHeader("Subject"))
}

func TestEmail_SkipsNonAddress(t *testing.T) {
	d := &fakeDialer{}
	res, err := NewEmailWithDialer("noreply@example.com", d).Send(context.Background(), "+6281234567890", "hi")

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Empty(t, d.sent)
}

func TestEmail_DialFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	res, err := NewEmailWithDialer("noreply@example.com", d).Send(context.Background(), "owner@example.com", "hi")

	assert.Error(t, err)
	assert.False(t, res.OK)
}

type stubNotifier struct {
	res   DeliveryResult
	err   error
	calls int
}

func (s *stubNotifier) Send(context.Context, string, string) (DeliveryResult, error) {
	s.calls++
	return s.res, s.err
}

func TestMulti_Send(t *testing.T) {
	failing := &stubNotifier{res: DeliveryResult{Detail: "down"}, err: errors.New("boom")}
	working := &stubNotifier{res: DeliveryResult{OK: true, Detail: "sent"}}

	res, err := Multi{failing, working}.Send(context.Background(), "+6281234567890", "hi")

	assert.EqualError(t, err, "boom")
	assert.True(t, res.OK)
	assert.Equal(t, "down; sent", res.Detail)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
}

func TestLog_Send(t *testing.T) {
	res, err := Log{}.Send(context.Background(), "+6281234567890", "hi")
	require.NoError(t, err)
	assert.True(t, res.OK)
}
