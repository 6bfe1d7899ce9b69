package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/blacklist"
	"supplierhub/internal/metrics"
	"supplierhub/internal/models"
	"supplierhub/internal/repositories"
)

// SessionService is the gate every protected request passes through.
type SessionService interface {
	// Authenticate resolves token to its user. Failures are, in order of
	// checking: ErrUnauthenticated, ErrRevoked (blacklisted),
	// ErrInvalidToken, ErrTokenExpired, ErrUserNotFound, ErrRevoked
	// (issued before the user's watermark).
	Authenticate(ctx context.Context, token string) (*models.User, *Claims, error)
	// AuthenticateOptional is Authenticate with every failure mapped to a
	// nil user.
	AuthenticateOptional(ctx context.Context, token string) (*models.User, *Claims)
	// Logout blacklists token and advances its owner's watermark. A missing
	// or unparseable token is not an error.
	Logout(ctx context.Context, token string) error
}

type sessionService struct {
	tokens    TokenService
	users     repositories.UserRepository
	blacklist blacklist.Store
	grace     time.Duration
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewSessionService(tokens TokenService, users repositories.UserRepository, bl blacklist.Store, grace, tokenTTL time.Duration, now func() time.Time) SessionService {
	if now == nil {
		now = time.Now
	}
	return &sessionService{
		tokens:    tokens,
		users:     users,
		blacklist: bl,
		grace:     grace,
		tokenTTL:  tokenTTL,
		now:       now,
	}
}

func (s *sessionService) Authenticate(ctx context.Context, token string) (*models.User, *Claims, error) {
	if token == "" {
		return nil, nil, apperrors.ErrUnauthenticated
	}

	revoked, err := s.blacklist.Contains(ctx, token)
	if err != nil {
		// The watermark below still catches logged-out tokens.
		log.Warn().Err(err).Msg("Blacklist lookup failed")
	}
	if revoked {
		metrics.TokensRevokedTotal.WithLabelValues("blacklist").Inc()
		return nil, nil, apperrors.ErrRevoked
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, err
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, apperrors.ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, apperrors.ErrUserNotFound
		}
		return nil, nil, apperrors.Internal("Could not verify session", err)
	}

	if issuedBeforeWatermark(claims, user, s.grace) {
		log.Info().Str("user_id", user.ID.Hex()).Msg("Token revoked - issued before last token update")
		metrics.TokensRevokedTotal.WithLabelValues("watermark").Inc()
		return nil, nil, apperrors.ErrRevoked
	}
	return user, claims, nil
}

// issuedBeforeWatermark compares at JWT (whole second) resolution, so a token
// minted from the same instant written to the watermark always passes.
func issuedBeforeWatermark(claims *Claims, user *models.User, grace time.Duration) bool {
	if user.LastTokenIssued == nil {
		return false
	}
	threshold := user.LastTokenIssued.Truncate(time.Second).Add(-grace)
	return claims.IssuedAt.Time.Before(threshold)
}

func (s *sessionService) AuthenticateOptional(ctx context.Context, token string) (*models.User, *Claims) {
	user, claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, nil
	}
	return user, claims
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	now := s.now()

	claims, parseErr := s.tokens.ParseIgnoringExpiry(token)
	expiresAt := now.Add(s.tokenTTL)
	if parseErr == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	var errs []error
	if err := s.blacklist.Add(ctx, token, expiresAt); err != nil {
		log.Error().Err(err).Msg("Failed to blacklist token on logout")
		errs = append(errs, err)
	}
	metrics.TokensRevokedTotal.WithLabelValues("logout").Inc()

	if parseErr != nil {
		return errors.Join(errs...)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return errors.Join(errs...)
	}
	if err := s.users.SetWatermark(ctx, userID, now); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to advance watermark on logout")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
