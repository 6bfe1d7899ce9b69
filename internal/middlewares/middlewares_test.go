package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/models"
	"supplierhub/internal/ratelimit"
	"supplierhub/internal/services"
	"supplierhub/internal/utils"
)

type stubSessions struct {
	user *models.User
	err  error
}

func (s *stubSessions) Authenticate(_ context.Context, token string) (*models.User, *services.Claims, error) {
	if token == "" {
		return nil, nil, apperrors.ErrUnauthenticated
	}
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.user, &services.Claims{UserID: s.user.ID.Hex()}, nil
}

func (s *stubSessions) AuthenticateOptional(ctx context.Context, token string) (*models.User, *services.Claims) {
	user, claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, nil
	}
	return user, claims
}

func (s *stubSessions) Logout(context.Context, string) error { return nil }

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUser(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(user.Phone))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Require(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Phone: "+6281234567890"}
	cases := []struct {
		name    string
		header  string
		err     error
		status  int
		message string
	}{
		{"no token", "", nil, http.StatusUnauthorized, "No token provided"},
		{"invalid", "Bearer x", apperrors.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer x", apperrors.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
		{"revoked", "Bearer x", apperrors.ErrRevoked, http.StatusUnauthorized, "Token revoked"},
		{"user gone", "Bearer x", apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"store down", "Bearer x", apperrors.Internal("Could not verify session", assert.AnError), http.StatusInternalServerError, "Could not verify session"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewAuthMiddleware(&stubSessions{user: user, err: tc.err}, false)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			m.Require(http.HandlerFunc(whoAmI)).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.message, body["message"])
			assert.NotContains(t, body, "error")
		})
	}

	t.Run("valid", func(t *testing.T) {
		m := NewAuthMiddleware(&stubSessions{user: user}, false)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()

		m.Require(http.HandlerFunc(whoAmI)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, user.Phone, rec.Body.String())
	})
}

func TestAuthMiddleware_Optional(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Phone: "+6281234567890"}

	m := NewAuthMiddleware(&stubSessions{user: user, err: apperrors.ErrRevoked}, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer revoked")
	rec := httptest.NewRecorder()
	m.Optional(http.HandlerFunc(whoAmI)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	m = NewAuthMiddleware(&stubSessions{user: user}, false)
	rec = httptest.NewRecorder()
	m.Optional(http.HandlerFunc(whoAmI)).ServeHTTP(rec, req)
	assert.Equal(t, user.Phone, rec.Body.String())
}

func TestWindowLimit(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := ratelimit.NewWithStore("otp_request", 2, 15*time.Minute, ratelimit.NewMemoryStore(), clock)
	h := WindowLimit(l, nil)(http.HandlerFunc(whoAmI))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	rec := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
}

func TestWindowLimit_ForwardedForCannotMintNewWindows(t *testing.T) {
	l := ratelimit.New("otp_request", 5, 15*time.Minute)
	h := WindowLimit(l, nil)(http.HandlerFunc(whoAmI))

	admitted := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "203.0.113.7:4444"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestWindowLimit_TrustedProxy(t *testing.T) {
	ips, err := utils.NewIPResolver([]string{"10.0.0.1"})
	require.NoError(t, err)
	l := ratelimit.New("otp_verify", 1, 15*time.Minute)
	h := WindowLimit(l, ips)(http.HandlerFunc(whoAmI))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusOK, send("198.51.100.2"))
	// A client-prepended hop does not change the key the proxy appended.
	assert.Equal(t, http.StatusTooManyRequests, send("1.1.1.1, 198.51.100.1"))
}

func TestGlobalLimiter(t *testing.T) {
	g := NewGlobalLimiter(0.0001, 2, nil)
	h := g.RateLimit(http.HandlerFunc(whoAmI))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	g.evictIdle(time.Now().Add(visitorTTL + time.Second))
	assert.Empty(t, g.visitors)
}

func TestCorsMiddleware(t *testing.T) {
	h := CorsMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(whoAmI))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req.Header.Set(RequestIDHeader, "abc123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", seen)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestPrometheusMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMiddleware(reg)

	r := mux.NewRouter()
	r.Use(m.Instrument)
	r.HandleFunc("/api/things/{id}", whoAmI).Methods(http.MethodGet)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/things/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "path" {
					assert.Equal(t, "/api/things/{id}", label.GetValue())
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, total)
}
