package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/logging"
	"supplierhub/internal/metrics"
	"supplierhub/internal/models"
	"supplierhub/internal/notifier"
	"supplierhub/internal/repositories"
	"supplierhub/internal/utils"
)

const OTPCodeLength = 6

const otpMessageTemplate = "Your Supplier Portal verification code is %s. It is valid for %d minutes. Do not share this code with anyone."

type RequestResult struct {
	Phone     string
	Code      string
	ExpiresAt time.Time
}

type LoginResult struct {
	Token  string
	Claims *Claims
	User   models.PublicUser
}

type OTPService interface {
	// RequestCode issues a fresh code for phone, replacing any pending one,
	// and hands it to the notifier. Delivery failures are logged only.
	RequestCode(ctx context.Context, phone string) (*RequestResult, error)
	// VerifyCode consumes a matching unexpired code and logs the user in.
	// The login moves the user's watermark, revoking every earlier token.
	VerifyCode(ctx context.Context, phone, code, deviceInfo string) (*LoginResult, error)
}

type OTPServiceConfig struct {
	CodeTTL  time.Duration
	TokenTTL time.Duration
}

type otpService struct {
	users     repositories.UserRepository
	otps      repositories.OTPRepository
	suppliers repositories.SupplierRepository
	tokens    TokenService
	sms       notifier.Notifier
	email     notifier.Notifier
	cfg       OTPServiceConfig
	now       func() time.Time
}

// NewOTPService wires the OTP flow. email may be nil; when set, users with an
// email address also get a copy of their code there.
func NewOTPService(users repositories.UserRepository, otps repositories.OTPRepository, suppliers repositories.SupplierRepository,
	tokens TokenService, sms, email notifier.Notifier, cfg OTPServiceConfig, now func() time.Time) OTPService {
	if now == nil {
		now = time.Now
	}
	return &otpService{
		users:     users,
		otps:      otps,
		suppliers: suppliers,
		tokens:    tokens,
		sms:       sms,
		email:     email,
		cfg:       cfg,
		now:       now,
	}
}

func (s *otpService) RequestCode(ctx context.Context, rawPhone string) (*RequestResult, error) {
	phone, ok := utils.NormalizePhone(rawPhone)
	if !ok {
		metrics.OTPRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.New(apperrors.ErrInvalidInput, "Please provide a valid phone number")
	}
	now := s.now()

	user, created, err := s.users.FindOrCreateByPhone(ctx, phone, now)
	if err != nil {
		metrics.OTPRequestsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Internal("Failed to send OTP", err)
	}
	if created {
		metrics.NewUsersTotal.Inc()
		log.Info().Str("phone", logging.MaskPhone(phone)).Msg("New user created")
	}

	code, err := utils.GenerateSecureOTP()
	if err != nil {
		metrics.OTPRequestsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Internal("Failed to send OTP", err)
	}
	expiresAt := now.Add(s.cfg.CodeTTL)
	if err := s.otps.Upsert(ctx, phone, code, expiresAt, now); err != nil {
		metrics.OTPRequestsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Internal("Failed to send OTP", err)
	}

	s.deliver(ctx, user, code)

	metrics.OTPRequestsTotal.WithLabelValues("success").Inc()
	log.Info().Str("phone", logging.MaskPhone(phone)).Time("expires_at", expiresAt).Msg("OTP issued")
	return &RequestResult{Phone: phone, Code: code, ExpiresAt: expiresAt}, nil
}

// deliver never fails: the code is already stored and can be verified even
// if no message went out. Notifiers log their own failures.
func (s *otpService) deliver(ctx context.Context, user *models.User, code string) {
	message := fmt.Sprintf(otpMessageTemplate, code, int(s.cfg.CodeTTL/time.Minute))

	if s.sms != nil {
		_, _ = s.sms.Send(ctx, user.Phone, message)
	}
	if s.email != nil && user.Email != "" {
		_, _ = s.email.Send(ctx, user.Email, message)
	}
}

func (s *otpService) VerifyCode(ctx context.Context, rawPhone, code, deviceInfo string) (*LoginResult, error) {
	if len(code) != OTPCodeLength {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.New(apperrors.ErrInvalidInput, "Please provide a valid 6-digit OTP")
	}
	if rawPhone == "" {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.New(apperrors.ErrInvalidInput, "Phone number is required")
	}
	phone, ok := utils.NormalizePhone(rawPhone)
	if !ok {
		metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.New(apperrors.ErrInvalidInput, "Please provide a valid phone number")
	}

	otp, err := s.otps.Consume(ctx, phone, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			metrics.OTPVerificationsTotal.WithLabelValues("invalid").Inc()
			metrics.LoginAttemptsTotal.WithLabelValues(TokenKindOTP, "failed").Inc()
			return nil, apperrors.ErrInvalidCredential
		}
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Internal("Failed to verify OTP", err)
	}

	// One instant for both the watermark and the token's iat.
	now := s.now()
	if otp.Expired(now) {
		metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
		metrics.LoginAttemptsTotal.WithLabelValues(TokenKindOTP, "failed").Inc()
		return nil, apperrors.New(apperrors.ErrOTPExpired, "OTP has expired. Please request a new one")
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, s.userLookupError(err)
	}
	user, err = s.users.RecordLogin(ctx, user.ID, deviceInfo, now)
	if err != nil {
		return nil, s.userLookupError(err)
	}

	token, claims, err := s.tokens.Issue(user, TokenKindOTP, deviceInfo, now, s.cfg.TokenTTL)
	if err != nil {
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.OTPVerificationsTotal.WithLabelValues("success").Inc()
	metrics.LoginAttemptsTotal.WithLabelValues(TokenKindOTP, "success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Str("phone", logging.MaskPhone(phone)).Msg("OTP verified, user logged in")

	return &LoginResult{
		Token:  token,
		Claims: claims,
		User:   newPublicUser(ctx, s.suppliers, user),
	}, nil
}

func (s *otpService) userLookupError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
		return apperrors.ErrUserNotFound
	}
	metrics.OTPVerificationsTotal.WithLabelValues("error").Inc()
	return apperrors.Internal("Failed to verify OTP", err)
}

func newPublicUser(ctx context.Context, suppliers repositories.SupplierRepository, user *models.User) models.PublicUser {
	return models.NewPublicUser(user, hasSupplier(ctx, suppliers, user))
}

// hasSupplier reports whether the user's supplier reference resolves to an
// existing document. Lookup faults count as "no supplier".
func hasSupplier(ctx context.Context, suppliers repositories.SupplierRepository, user *models.User) bool {
	if user.SupplierID == nil || suppliers == nil {
		return false
	}
	if _, err := suppliers.FindByID(ctx, *user.SupplierID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("Supplier lookup failed")
		}
		return false
	}
	return true
}
