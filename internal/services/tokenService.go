package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/models"
)

const (
	TokenKindOTP      = "otp"
	TokenKindPassword = "password"
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	Phone  string `json:"phone"`
	Device string `json:"device,omitempty"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens. It knows nothing about
// users beyond what goes into the claims; revocation is SessionService's job.
type TokenService interface {
	// Issue mints a token with iat = issuedAt and exp = issuedAt + ttl.
	Issue(user *models.User, kind, device string, issuedAt time.Time, ttl time.Duration) (string, *Claims, error)
	// Parse verifies signature, shape and expiry.
	Parse(token string) (*Claims, error)
	// ParseIgnoringExpiry verifies signature and shape only.
	ParseIgnoringExpiry(token string) (*Claims, error)
}

type tokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string, now func() time.Time) TokenService {
	if now == nil {
		now = time.Now
	}
	return &tokenService{secret: []byte(secret), now: now}
}

func (s *tokenService) Issue(user *models.User, kind, device string, issuedAt time.Time, ttl time.Duration) (string, *Claims, error) {
	claims := &Claims{
		UserID: user.ID.Hex(),
		Phone:  user.Phone,
		Device: device,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, apperrors.Internal("Could not generate token", err)
	}
	return signed, claims, nil
}

func (s *tokenService) Parse(token string) (*Claims, error) {
	return s.parse(token, jwt.WithTimeFunc(s.now))
}

func (s *tokenService) ParseIgnoringExpiry(token string) (*Claims, error) {
	return s.parse(token, jwt.WithoutClaimsValidation())
}

func (s *tokenService) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
