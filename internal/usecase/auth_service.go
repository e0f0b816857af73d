package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"cryptosniper/internal/domain"
	apperrors "cryptosniper/internal/errors"
)

// AuthRecorder counts auth outcomes
type AuthRecorder interface {
	OTPIssued()
	OTPVerified(result string)
	SignIn(result string)
}

// EventNotifier publishes best-effort domain events
type EventNotifier interface {
	Notify(ctx context.Context, eventType string, userID, entityID int64, payload interface{})
}

// Registration is the complete-registration input after schema validation
type Registration struct {
	Username  string
	Email     string
	Name      string
	Phone     string
	Password  string
	APIKey    string
	APISecret string
}

// AuthService handles the signup, OTP and sign-in flow
type AuthService struct {
	users      domain.UserRepository
	otps       domain.OTPStore
	sender     domain.OTPSender
	notifier   EventNotifier
	recorder   AuthRecorder
	log        *zap.Logger
	bcryptCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users domain.UserRepository,
	otps domain.OTPStore,
	sender domain.OTPSender,
	notifier EventNotifier,
	recorder AuthRecorder,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		otps:       otps,
		sender:     sender,
		notifier:   notifier,
		recorder:   recorder,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Signup issues an OTP for an email that is not yet registered
func (s *AuthService) Signup(ctx context.Context, email, phone string) error {
	if email == "" {
		return apperrors.NewFieldValidationError("Email is required", map[string]string{"email": "required"})
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return apperrors.NewConflictError("Email already registered", nil)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return apperrors.NewInternalError("Failed to look up user", err)
	}

	code, err := s.otps.Issue(ctx, email)
	if err != nil {
		return apperrors.NewInternalError("Failed to issue OTP", err)
	}
	if s.recorder != nil {
		s.recorder.OTPIssued()
	}

	if err := s.sender.SendOTP(ctx, email, phone, code); err != nil {
		return apperrors.NewInternalError("Failed to send OTP", err)
	}

	s.log.Info("OTP sent", zap.String("email", email))
	return nil
}

// VerifyOTP consumes the code issued for email
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return apperrors.NewFieldValidationError("Email and OTP are required", missingFields(map[string]string{
			"email": email,
			"otp":   code,
		}))
	}

	err := s.otps.Verify(ctx, email, code)
	if s.recorder != nil {
		s.recorder.OTPVerified(otpResult(err))
	}
	if err != nil {
		return apperrors.FromOTP(err)
	}
	return nil
}

// CompleteRegistration creates the account with a bcrypt password hash.
// The email must have passed VerifyOTP within VerifiedTTL.
func (s *AuthService) CompleteRegistration(ctx context.Context, reg Registration) (*domain.User, error) {
	verified, err := s.otps.Verified(ctx, reg.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to check email verification", err)
	}
	if !verified {
		return nil, apperrors.FromOTP(domain.ErrUnverified)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to hash password", err)
	}

	user := &domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		Name:         optional(reg.Name),
		Phone:        optional(reg.Phone),
		PasswordHash: string(hash),
		APIKey:       optional(reg.APIKey),
		APISecret:    optional(reg.APISecret),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperrors.NewConflictError("Username or email already registered", err)
		}
		return nil, apperrors.NewInternalError("Failed to create user", err)
	}

	if err := s.otps.Forget(ctx, reg.Email); err != nil {
		s.log.Warn("Failed to clear verified marker", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	if s.notifier != nil {
		s.notifier.Notify(ctx, domain.EventUserRegistered, user.ID, user.ID, map[string]string{
			"username":    user.Username,
			"displayName": user.DisplayName(),
		})
	}
	return user, nil
}

// SignIn checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.recordSignIn("unknown_email")
		return nil, apperrors.NewInvalidCredentialsError()
	}
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordSignIn("bad_password")
		return nil, apperrors.NewInvalidCredentialsError()
	}

	s.recordSignIn("ok")
	return user, nil
}

func (s *AuthService) recordSignIn(result string) {
	if s.recorder != nil {
		s.recorder.SignIn(result)
	}
}

func otpResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMissingCode):
		return "missing"
	case errors.Is(err, domain.ErrExpiredCode):
		return "expired"
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid"
	default:
		return "error"
	}
}

func missingFields(values map[string]string) map[string]string {
	fields := make(map[string]string)
	for name, v := range values {
		if v == "" {
			fields[name] = "required"
		}
	}
	return fields
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// String implements fmt.Stringer for log lines
func (r Registration) String() string {
	return fmt.Sprintf("Registration{username=%s, email=%s}", r.Username, r.Email)
}
