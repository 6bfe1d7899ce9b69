package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/logging"
	"supplierhub/internal/metrics"
	"supplierhub/internal/repositories"
	"supplierhub/internal/utils"
)

const MinPasswordLength = 8

// PasswordService is the optional phone + password login. Password tokens
// are short-lived and do not move the watermark, so they never revoke OTP
// sessions.
type PasswordService interface {
	SetPassword(ctx context.Context, userID primitive.ObjectID, password string) error
	Login(ctx context.Context, phone, password string) (*LoginResult, error)
}

type passwordService struct {
	users     repositories.UserRepository
	suppliers repositories.SupplierRepository
	tokens    TokenService
	tokenTTL  time.Duration
	cost      int
	now       func() time.Time
}

func NewPasswordService(users repositories.UserRepository, suppliers repositories.SupplierRepository, tokens TokenService, tokenTTL time.Duration, now func() time.Time) PasswordService {
	if now == nil {
		now = time.Now
	}
	return &passwordService{
		users:     users,
		suppliers: suppliers,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		cost:      bcrypt.DefaultCost,
		now:       now,
	}
}

func (s *passwordService) SetPassword(ctx context.Context, userID primitive.ObjectID, password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.New(apperrors.ErrInvalidInput, "Password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to hash password")
		return apperrors.Internal("Failed to set password", err)
	}

	if err := s.users.SetPasswordHash(ctx, userID, string(hashed), s.now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Internal("Failed to set password", err)
	}
	log.Info().Str("user_id", userID.Hex()).Msg("Password set")
	return nil
}

func (s *passwordService) Login(ctx context.Context, rawPhone, password string) (*LoginResult, error) {
	invalid := apperrors.New(apperrors.ErrInvalidCredential, "Invalid credentials")

	phone, ok := utils.NormalizePhone(rawPhone)
	if !ok || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues(TokenKindPassword, "failed").Inc()
		return nil, invalid
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Str("phone", logging.MaskPhone(phone)).Msg("Invalid credentials during login attempt")
			metrics.LoginAttemptsTotal.WithLabelValues(TokenKindPassword, "failed").Inc()
			return nil, invalid
		}
		log.Error().Err(err).Str("phone", logging.MaskPhone(phone)).Msg("Error finding user for login")
		return nil, apperrors.Internal("Login failed", err)
	}

	if user.PasswordHash == "" {
		metrics.LoginAttemptsTotal.WithLabelValues(TokenKindPassword, "failed").Inc()
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("user_id", user.ID.Hex()).Msg("Invalid credentials (password mismatch) during login attempt")
		metrics.LoginAttemptsTotal.WithLabelValues(TokenKindPassword, "failed").Inc()
		return nil, invalid
	}

	token, claims, err := s.tokens.Issue(user, TokenKindPassword, "", s.now(), s.tokenTTL)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues(TokenKindPassword, "success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("User logged in with password")
	return &LoginResult{
		Token:  token,
		Claims: claims,
		User:   newPublicUser(ctx, s.suppliers, user),
	}, nil
}
