package account

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
	"github.com/adamscao/pic-certificates/internal/audit"
	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/adamscao/pic-certificates/internal/notify"
	"github.com/adamscao/pic-certificates/internal/token"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	invalidCredentials = "Invalid username or password"
	resetNotifyTimeout = 30 * time.Second
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// timingHash is compared against when there is no usable user so every
// login attempt pays for one bcrypt comparison.
func timingHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("pic-certificates-timing")
	})
	return dummyHash
}

// UserStore persists user accounts
type UserStore interface {
	Create(user *models.User) error
	GetByID(id int64) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdatePassword(id int64, passwordHash string) error
	List() ([]*models.User, error)
}

// TokenPair is the credential pair returned on login and refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

// LoginResult is a successful login
type LoginResult struct {
	TokenPair
	User *models.User `json:"user"`
}

// CreateUserInput holds the fields of a new account
type CreateUserInput struct {
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       models.Role `json:"role"`
	FactoryID  string      `json:"factoryId"`
	EnableTOTP bool        `json:"enableTotp"`
}

// CreatedUser is a new account plus its TOTP enrollment when one was requested
type CreatedUser struct {
	User *models.User
	TOTP *auth.TOTPEnrollment
}

// Service implements login, token rotation, logout and password recovery
type Service struct {
	users         UserStore
	tokens        *token.Service
	registry      token.Registry
	notifier      notify.Notifier
	sink          audit.Sink
	encryptionKey []byte
	validate      *validator.Validate
	logger        *zap.Logger
	compare       func(plaintext, hash string) (bool, error)
	pending       sync.WaitGroup
}

// NewService creates an account service
func NewService(users UserStore, tokens *token.Service, registry token.Registry, notifier notify.Notifier,
	sink audit.Sink, encryptionKey []byte, logger *zap.Logger) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:         users,
		tokens:        tokens,
		registry:      registry,
		notifier:      notifier,
		sink:          sink,
		encryptionKey: encryptionKey,
		validate:      validator.New(),
		logger:        logger.With(zap.String("component", "account")),
		compare:       auth.ComparePassword,
	}
}

// Login authenticates a user. Every failure yields the same INVALID_CREDENTIALS error.
func (s *Service) Login(ctx context.Context, username, password, totpCode, clientIP string) (*LoginResult, error) {
	fail := func(reason string) error {
		s.sink.Log(models.EventLoginFailed, map[string]interface{}{
			"username":  username,
			"client_ip": clientIP,
			"reason":    reason,
		})
		return apperror.Authentication(apperror.CodeInvalidCredentials, invalidCredentials)
	}

	user, err := s.users.GetByUsername(username)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			_, _ = s.compare(password, timingHash())
			return nil, fail("unknown_user")
		}
		return nil, apperror.Internal("failed to load user", err)
	}

	if !user.Enabled {
		_, _ = s.compare(password, timingHash())
		return nil, fail("disabled")
	}

	ok, err := s.compare(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("Stored password hash is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, fail("bad_password")
	}

	if user.TOTPSecret != "" {
		secret, err := auth.Decrypt(user.TOTPSecret, s.encryptionKey)
		if err != nil {
			s.logger.Error("Failed to decrypt TOTP secret", zap.Int64("user_id", user.ID), zap.Error(err))
			return nil, err
		}
		if !auth.ValidateTOTP(string(secret), totpCode) {
			return nil, fail("bad_totp")
		}
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.sink.Log(models.EventLoginSucceeded, map[string]interface{}{
		"user_id":   user.ID,
		"username":  user.Username,
		"client_ip": clientIP,
	})
	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked so it cannot be replayed; of concurrent calls with one token only
// a single one succeeds.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if s.registry.IsBlacklisted(ctx, refreshToken) {
		return nil, apperror.Authentication(apperror.CodeTokenRevoked, "Token has been revoked")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil || !user.Enabled {
		return nil, apperror.Authentication(apperror.CodeTokenInvalid, "Invalid token")
	}

	already, err := s.registry.Revoke(ctx, refreshToken, claims.Expiry())
	if err != nil {
		return nil, apperror.Internal("failed to revoke refresh token", err)
	}
	if already {
		return nil, apperror.Authentication(apperror.CodeTokenRevoked, "Token has been revoked")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.sink.Log(models.EventTokenRefreshed, map[string]interface{}{"user_id": user.ID})
	return pair, nil
}

// Logout revokes the access token and, when given and owned by the same
// user, the refresh token, each until its own expiry
func (s *Service) Logout(ctx context.Context, claims *token.Claims, accessToken, refreshToken string) error {
	if err := s.registry.Add(ctx, accessToken, claims.Expiry()); err != nil {
		return apperror.Internal("failed to revoke access token", err)
	}

	if refreshToken != "" {
		if rc := s.tokens.VerifyRefreshToken(refreshToken); rc != nil && rc.UserID == claims.UserID {
			if err := s.registry.Add(ctx, refreshToken, rc.Expiry()); err != nil {
				return apperror.Internal("failed to revoke refresh token", err)
			}
		}
	}

	s.sink.Log(models.EventLogout, map[string]interface{}{"user_id": claims.UserID})
	return nil
}

// ForgotPassword starts password recovery. The caller sees the same outcome
// whether or not the address is registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			s.logger.Error("Failed to look up user for password reset", zap.Error(err))
		}
		s.sink.Log(models.EventPasswordResetRequested, map[string]interface{}{"known": false})
		return
	}

	s.sink.Log(models.EventPasswordResetRequested, map[string]interface{}{"known": true, "user_id": user.ID})
	if !user.Enabled {
		return
	}

	resetToken, err := s.tokens.GenerateResetToken(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate reset token", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), resetNotifyTimeout)
		defer cancel()

		if err := s.notifier.SendPasswordReset(ctx, user, resetToken); err != nil {
			s.logger.Warn("Failed to send password reset notification", zap.Int64("user_id", user.ID), zap.Error(err))
			s.sink.Log(models.EventNotificationFailed, map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}()
}

// ResetPassword sets a new password using a single-use reset token
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if s.registry.IsBlacklisted(ctx, resetToken) {
		return apperror.Authentication(apperror.CodeTokenRevoked, "Reset token has already been used")
	}

	claims := s.tokens.VerifyResetToken(resetToken)
	if claims == nil {
		return apperror.Authentication(apperror.CodeTokenInvalid, "Invalid or expired reset token")
	}

	if strength := auth.ValidatePasswordStrength(newPassword); !strength.IsValid {
		return apperror.Validation("Password does not meet requirements", strength.Errors)
	}

	// The token is consumed before the password changes.
	already, err := s.registry.Revoke(ctx, resetToken, claims.Expiry())
	if err != nil {
		return apperror.Internal("failed to consume reset token", err)
	}
	if already {
		return apperror.Authentication(apperror.CodeTokenRevoked, "Reset token has already been used")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(claims.UserID, hash); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return apperror.Authentication(apperror.CodeTokenInvalid, "Invalid or expired reset token")
		}
		return apperror.Internal("failed to update password", err)
	}

	s.sink.Log(models.EventPasswordResetCompleted, map[string]interface{}{"user_id": claims.UserID})
	return nil
}

// Me returns the profile of the authenticated user
func (s *Service) Me(claims *token.Claims) (*models.User, error) {
	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		return nil, apperror.Internal("failed to load user", err)
	}
	return user, nil
}

// CreateUser creates an account, enrolling TOTP when requested
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*CreatedUser, error) {
	var details []string
	if in.Username == "" {
		details = append(details, "username is required")
	}
	if err := s.validate.Var(in.Email, "required,email"); err != nil {
		details = append(details, "email must be a valid email address")
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if _, err := models.ParseRole(string(in.Role)); err != nil {
		details = append(details, "role must be one of admin, manager, user")
	}
	if strength := auth.ValidatePasswordStrength(in.Password); !strength.IsValid {
		details = append(details, strength.Errors...)
	}
	if len(details) > 0 {
		return nil, apperror.Validation("User validation failed", details)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		FactoryID:    in.FactoryID,
		Enabled:      true,
	}

	var enrollment *auth.TOTPEnrollment
	if in.EnableTOTP {
		enrollment, err = auth.GenerateTOTP(in.Username)
		if err != nil {
			return nil, apperror.Internal("failed to enroll TOTP", err)
		}
		user.TOTPSecret, err = auth.Encrypt([]byte(enrollment.Secret), s.encryptionKey)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindCrypto, apperror.CodeInternal, "failed to encrypt TOTP secret", err)
		}
	}

	if err := s.users.Create(user); err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			return nil, err
		}
		return nil, apperror.Internal("failed to create user", err)
	}

	s.sink.Log(models.EventUserCreated, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
	})
	return &CreatedUser{User: user, TOTP: enrollment}, nil
}

// ListUsers returns every account
func (s *Service) ListUsers() ([]*models.User, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Wait blocks until background notifications have finished
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) issuePair(user *models.User) (*TokenPair, error) {
	payload := token.Payload{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		FactoryID: user.FactoryID,
	}

	access, err := s.tokens.GenerateAccessToken(payload)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(payload)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// UserIDString formats a user id the way certificates record their owner
func UserIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
