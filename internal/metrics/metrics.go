package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	NewUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_new_users_total",
		Help: "Total number of users created by a first OTP request.",
	})
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of login attempts (successful and failed).",
	}, []string{"method", "status"}) // method: "otp" or "password"

	// OTP Metrics
	OTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_requests_total",
		Help: "Total number of OTP requests.",
	}, []string{"status"})
	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_otp_verifications_total",
		Help: "Total number of OTP verification attempts.",
	}, []string{"status"}) // status: "success", "invalid", "expired", "error"

	// Session Metrics
	TokensRevokedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_tokens_revoked_total",
		Help: "Total number of tokens rejected or revoked.",
	}, []string{"reason"}) // reason: "logout", "blacklist", "watermark"
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_rate_limited_total",
		Help: "Total number of requests rejected by a rate limiter.",
	}, []string{"limiter"})

	// Delivery Metrics
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_notifications_total",
		Help: "Total number of outbound notifications by channel and outcome.",
	}, []string{"channel", "status"})

	// Maintenance Metrics
	CleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_cleanup_runs_total",
		Help: "Total number of cleanup sweep steps by outcome.",
	}, []string{"step", "status"})
)
