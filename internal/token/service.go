package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/audit"
	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class identifies one of the three independent token classes
type Class string

// Token classes
const (
	ClassAccess  Class = "access"
	ClassRefresh Class = "refresh"
	ClassReset   Class = "reset"
)

// Default lifetimes
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

// Verification failure classes reported to the security sink
const (
	FailureExpired          = "expired"
	FailureMalformed        = "malformed"
	FailureInvalidSignature = "invalid_signature"
	FailureInvalidClaims    = "invalid_claims"
	FailureWrongType        = "wrong_type"
)

// Config holds the secret and lifetime of each token class
type Config struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// Service issues and verifies access, refresh and reset tokens
type Service struct {
	config Config
	sink   audit.Sink
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service; zero lifetimes fall back to the defaults
func NewService(cfg Config, sink audit.Sink, opts ...Option) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if sink == nil {
		sink = audit.Nop{}
	}

	s := &Service{config: cfg, sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL returns the access token lifetime
func (s *Service) AccessTTL() time.Duration {
	return s.config.AccessTTL
}

// GenerateAccessToken signs payload as an access token
func (s *Service) GenerateAccessToken(p Payload) (string, error) {
	return s.signIdentity(p, s.config.AccessSecret, s.config.AccessTTL)
}

// GenerateRefreshToken signs payload as a refresh token
func (s *Service) GenerateRefreshToken(p Payload) (string, error) {
	return s.signIdentity(p, s.config.RefreshSecret, s.config.RefreshTTL)
}

// GenerateResetToken signs {id, type: "reset"} with the reset secret
func (s *Service) GenerateResetToken(userID int64) (string, error) {
	claims := ResetClaims{
		UserID:           userID,
		Type:             ResetType,
		RegisteredClaims: s.registered(userID, s.config.ResetTTL),
	}
	return sign(claims, s.config.ResetSecret)
}

// VerifyAccessToken returns the claims of a valid access token, nil otherwise
func (s *Service) VerifyAccessToken(tokenString string) *Claims {
	claims, _ := s.VerifyAccess(tokenString)
	return claims
}

// VerifyRefreshToken returns the claims of a valid refresh token, nil otherwise
func (s *Service) VerifyRefreshToken(tokenString string) *Claims {
	claims, _ := s.VerifyRefresh(tokenString)
	return claims
}

// VerifyAccess verifies an access token and reports why it was rejected
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verifyIdentity(tokenString, ClassAccess, s.config.AccessSecret)
}

// VerifyRefresh verifies a refresh token and reports why it was rejected
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verifyIdentity(tokenString, ClassRefresh, s.config.RefreshSecret)
}

// VerifyResetToken returns the claims of a valid reset token, nil otherwise.
// The token must carry type "reset" even when its signature is valid.
func (s *Service) VerifyResetToken(tokenString string) *ResetClaims {
	var claims ResetClaims
	if err := s.parse(tokenString, s.config.ResetSecret, &claims); err != nil {
		s.reportFailure(ClassReset, tokenString, failureClass(err))
		return nil
	}
	if claims.Type != ResetType {
		s.reportFailure(ClassReset, tokenString, FailureWrongType)
		return nil
	}
	return &claims
}

// IsTokenExpired decodes without verifying the signature. Display use only;
// never an authorization decision.
func IsTokenExpired(tokenString string) bool {
	return IsTokenExpiredAt(tokenString, time.Now())
}

// IsTokenExpiredAt is IsTokenExpired against an explicit instant
func IsTokenExpiredAt(tokenString string, now time.Time) bool {
	exp := GetTokenExpiration(tokenString)
	if exp == nil {
		return true
	}
	return !now.Before(*exp)
}

// GetTokenExpiration decodes the exp claim without verifying the signature
func GetTokenExpiration(tokenString string) *time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}

func (s *Service) signIdentity(p Payload, secret string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:           p.ID,
		Username:         p.Username,
		Email:            p.Email,
		Role:             p.Role,
		FactoryID:        p.FactoryID,
		RegisteredClaims: s.registered(p.ID, ttl),
	}
	return sign(claims, secret)
}

func (s *Service) registered(userID int64, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(claims jwt.Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "failed to sign token", err)
	}
	return signed, nil
}

func (s *Service) verifyIdentity(tokenString string, class Class, secret string) (*Claims, error) {
	var claims Claims
	if err := s.parse(tokenString, secret, &claims); err != nil {
		reason := failureClass(err)
		s.reportFailure(class, tokenString, reason)
		if reason == FailureExpired {
			return nil, apperror.Authentication(apperror.CodeTokenExpired, "Token has expired")
		}
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid token")
	}

	if claims.Type != "" {
		s.reportFailure(class, tokenString, FailureWrongType)
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid token")
	}
	if _, err := models.ParseRole(string(claims.Role)); err != nil {
		s.reportFailure(class, tokenString, FailureInvalidClaims)
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid token")
	}

	return &claims, nil
}

func (s *Service) parse(tokenString, secret string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	return err
}

func (s *Service) reportFailure(class Class, tokenString, reason string) {
	fp := auth.Fingerprint(tokenString)
	s.sink.Log(models.EventTokenVerificationFailed, map[string]interface{}{
		"token_type":        string(class),
		"reason":            reason,
		"token_fingerprint": fp[:16],
	})
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return FailureExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return FailureMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return FailureInvalidSignature
	default:
		return FailureInvalidClaims
	}
}
