package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/blacklist"
	"supplierhub/internal/metrics"
	"supplierhub/internal/ratelimit"
	"supplierhub/internal/repositories"
)

const DefaultCleanupInterval = time.Hour

// CleanupService runs the periodic maintenance sweep: expired codes,
// stale rate-limit windows and an oversized blacklist.
type CleanupService struct {
	otps         repositories.OTPRepository
	blacklist    blacklist.Store
	limiters     []*ratelimit.Limiter
	interval     time.Duration
	blacklistMax int
	now          func() time.Time
}

func NewCleanupService(otps repositories.OTPRepository, bl blacklist.Store, limiters []*ratelimit.Limiter, interval time.Duration, blacklistMax int, now func() time.Time) *CleanupService {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{
		otps:         otps,
		blacklist:    bl,
		limiters:     limiters,
		interval:     interval,
		blacklistMax: blacklistMax,
		now:          now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Cleanup sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cleanup sweep stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. A failing step is logged and the
// remaining steps still run.
func (s *CleanupService) RunOnce(ctx context.Context) {
	now := s.now()

	if n, err := s.otps.DeleteExpired(ctx, now); err != nil {
		log.Error().Err(err).Msg("Failed to delete expired OTPs")
		metrics.CleanupRunsTotal.WithLabelValues("otps", "error").Inc()
	} else {
		log.Debug().Int64("deleted", n).Msg("Expired OTPs deleted")
		metrics.CleanupRunsTotal.WithLabelValues("otps", "success").Inc()
	}

	for _, l := range s.limiters {
		removed := l.Prune(now)
		log.Debug().Str("limiter", l.Name).Int("removed", removed).Msg("Rate limiter pruned")
	}
	metrics.CleanupRunsTotal.WithLabelValues("limiters", "success").Inc()

	size, err := s.blacklist.Len(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to size token blacklist")
		metrics.CleanupRunsTotal.WithLabelValues("blacklist", "error").Inc()
		return
	}
	if size > s.blacklistMax {
		if err := s.blacklist.Clear(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to clear token blacklist")
			metrics.CleanupRunsTotal.WithLabelValues("blacklist", "error").Inc()
			return
		}
		log.Info().Int("size", size).Int("max", s.blacklistMax).Msg("Token blacklist cleared")
	}
	metrics.CleanupRunsTotal.WithLabelValues("blacklist", "success").Inc()
}
