package domain

import (
	"context"
	"errors"
	"time"
)

// OTP verification errors
var (
	ErrMissingCode = errors.New("no verification code issued")
	ErrExpiredCode = errors.New("verification code expired")
	ErrInvalidCode = errors.New("invalid verification code")
	ErrUnverified  = errors.New("email not verified")
)

// OTP policy
const (
	OTPTTL    = 5 * time.Minute
	OTPMinVal = 100000
	OTPMaxVal = 999999

	// VerifiedTTL bounds the gap between verify-otp and complete-registration
	VerifiedTTL = 15 * time.Minute
)

// SessionTTL is the lifetime of a signed-in session
const SessionTTL = 7 * 24 * time.Hour

// OTPEntry is an outstanding one-time code for an email
type OTPEntry struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Expired reports whether the entry is older than the OTP lifetime at now
func (e OTPEntry) Expired(now time.Time) bool {
	return now.Sub(e.IssuedAt) > OTPTTL
}

// OTPStore holds at most one outstanding code per email
type OTPStore interface {
	// Issue generates a code for email, replacing any prior one
	Issue(ctx context.Context, email string) (string, error)

	// Verify consumes the code; see ErrMissingCode, ErrExpiredCode, ErrInvalidCode.
	// Success marks email verified for VerifiedTTL.
	Verify(ctx context.Context, email, code string) error

	// Verified reports whether email holds a live verified marker
	Verified(ctx context.Context, email string) (bool, error)

	// Forget drops the verified marker once the account exists
	Forget(ctx context.Context, email string) error

	// Sweep drops expired entries and markers and returns how many were removed
	Sweep(ctx context.Context) (int, error)
}

// Session binds a server-generated id to an authenticated user
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore keeps live sessions
type SessionStore interface {
	// Create opens a session for userID
	Create(ctx context.Context, userID int64) (*Session, error)

	// Get returns a live session or ErrNotFound
	Get(ctx context.Context, id string) (*Session, error)

	// Delete destroys a session; deleting an unknown id is not an error
	Delete(ctx context.Context, id string) error

	// Sweep drops expired sessions and returns how many were removed
	Sweep(ctx context.Context) (int, error)
}

// OTPSender delivers a one-time code to the user
type OTPSender interface {
	SendOTP(ctx context.Context, email, phone, code string) error
}
