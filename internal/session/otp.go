// Package session holds short-lived auth state: one-time signup codes and
// signed-in sessions. Each has an in-process implementation and a Redis one.
package session

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"cryptosniper/internal/domain"
)

// Clock returns the current time
type Clock func() time.Time

// CodeGenerator produces a six-digit code
type CodeGenerator func() string

// RandomCode draws uniformly from [OTPMinVal, OTPMaxVal]
func RandomCode() string {
	n := domain.OTPMinVal + rand.IntN(domain.OTPMaxVal-domain.OTPMinVal+1)
	return strconv.Itoa(n)
}

// OTPOption configures an OTP store
type OTPOption func(*otpOptions)

type otpOptions struct {
	now      Clock
	generate CodeGenerator
}

// WithClock overrides time.Now
func WithClock(now Clock) OTPOption {
	return func(o *otpOptions) { o.now = now }
}

// WithGenerator overrides RandomCode
func WithGenerator(g CodeGenerator) OTPOption {
	return func(o *otpOptions) { o.generate = g }
}

func buildOTPOptions(opts []OTPOption) otpOptions {
	o := otpOptions{now: time.Now, generate: RandomCode}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryOTPStore keeps codes in a mutex-guarded map
type MemoryOTPStore struct {
	mu       sync.Mutex
	entries  map[string]domain.OTPEntry
	verified map[string]time.Time
	otpOptions
}

// NewMemoryOTPStore creates an empty OTP cache
func NewMemoryOTPStore(opts ...OTPOption) *MemoryOTPStore {
	return &MemoryOTPStore{
		entries:    make(map[string]domain.OTPEntry),
		verified:   make(map[string]time.Time),
		otpOptions: buildOTPOptions(opts),
	}
}

// Issue generates a code for email, replacing any prior one
func (s *MemoryOTPStore) Issue(ctx context.Context, email string) (string, error) {
	code := s.generate()

	s.mu.Lock()
	s.entries[email] = domain.OTPEntry{Code: code, IssuedAt: s.now()}
	s.mu.Unlock()

	return code, nil
}

// Verify consumes the code. Expired entries are removed; a wrong code leaves
// the entry in place so the user can retry.
func (s *MemoryOTPStore) Verify(ctx context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return domain.ErrMissingCode
	}
	if entry.Expired(s.now()) {
		delete(s.entries, email)
		return domain.ErrExpiredCode
	}
	if entry.Code != code {
		return domain.ErrInvalidCode
	}

	delete(s.entries, email)
	s.verified[email] = s.now()
	return nil
}

// Verified reports whether email passed Verify within VerifiedTTL
func (s *MemoryOTPStore) Verified(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.verified[email]
	if !ok {
		return false, nil
	}
	if s.now().Sub(at) > domain.VerifiedTTL {
		delete(s.verified, email)
		return false, nil
	}
	return true, nil
}

// Forget drops the verified marker
func (s *MemoryOTPStore) Forget(ctx context.Context, email string) error {
	s.mu.Lock()
	delete(s.verified, email)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired entries and stale verified markers
func (s *MemoryOTPStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, email)
			removed++
		}
	}
	for email, at := range s.verified {
		if now.Sub(at) > domain.VerifiedTTL {
			delete(s.verified, email)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of outstanding codes
func (s *MemoryOTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
