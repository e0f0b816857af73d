package http

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"cryptosniper/internal/delivery/http/dto"
	"cryptosniper/internal/delivery/http/schema"
	apperrors "cryptosniper/internal/errors"
	"cryptosniper/internal/middleware"
	"cryptosniper/internal/usecase"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	auth      *usecase.AuthService
	sessions  *middleware.SessionAuth
	validator BodyValidator
	log       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *usecase.AuthService, sessions *middleware.SessionAuth, validator BodyValidator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		sessions:  sessions,
		validator: validator,
		log:       log,
	}
}

// Signup sends a one-time code to a new email
// POST /api/auth/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	var req dto.SignupRequest
	if err := bindValidated(c, h.validator, schema.Signup, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.Signup(ctx, req.Email, req.Phone); err != nil {
		return err
	}
	return MessageResponse(c, "OTP sent to your email")
}

// VerifyOTP checks the code sent at signup
// POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req dto.VerifyOTPRequest
	if err := bindValidated(c, h.validator, schema.VerifyOTP, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.VerifyOTP(ctx, req.Email, req.OTP); err != nil {
		return err
	}
	return MessageResponse(c, "OTP verified successfully")
}

// CompleteRegistration creates the account and signs the user in
// POST /api/auth/complete-registration
func (h *AuthHandler) CompleteRegistration(c echo.Context) error {
	var req dto.CompleteRegistrationRequest
	if err := bindValidated(c, h.validator, schema.CompleteRegistration, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.CompleteRegistration(ctx, usecase.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		Password:  req.Password,
		APIKey:    deref(req.APIKey),
		APISecret: deref(req.APISecret),
	})
	if err != nil {
		return err
	}

	if _, err := h.sessions.Issue(c, user.ID); err != nil {
		return apperrors.NewInternalError("Failed to start session", err)
	}

	return SuccessResponse(c, dto.AuthResponse{
		Message: "Registration completed successfully",
		User:    dto.NewUserSummary(user),
	})
}

// SignIn checks credentials and sets the session cookie
// POST /api/auth/signin
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req dto.SignInRequest
	if err := bindValidated(c, h.validator, schema.SignIn, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	if _, err := h.sessions.Issue(c, user.ID); err != nil {
		return apperrors.NewInternalError("Failed to start session", err)
	}

	return SuccessResponse(c, dto.AuthResponse{
		Message: "Signed in successfully",
		User:    dto.NewUserSummary(user),
	})
}

// SignOut destroys the session and clears the cookie
// POST /api/auth/signout
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.sessions.Revoke(c); err != nil {
		return apperrors.NewInternalError("Failed to sign out", err)
	}
	return MessageResponse(c, "Signed out successfully")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
