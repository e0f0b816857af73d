package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cryptosniper/internal/domain"
)

const (
	otpKeyPrefix      = "otp:"
	verifiedKeyPrefix = "otp-verified:"
)

// RedisOTPStore keeps one JSON-encoded entry per email. Keys carry a TTL a
// little past the code lifetime so an expired code still reports as expired
// rather than missing.
type RedisOTPStore struct {
	rdb *redis.Client
	otpOptions
}

// NewRedisOTPStore creates an OTP cache backed by rdb
func NewRedisOTPStore(rdb *redis.Client, opts ...OTPOption) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb, otpOptions: buildOTPOptions(opts)}
}

func otpKey(email string) string {
	return otpKeyPrefix + email
}

func verifiedKey(email string) string {
	return verifiedKeyPrefix + email
}

// Issue generates a code for email, replacing any prior one
func (s *RedisOTPStore) Issue(ctx context.Context, email string) (string, error) {
	code := s.generate()
	payload, err := json.Marshal(domain.OTPEntry{Code: code, IssuedAt: s.now()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal otp entry: %w", err)
	}

	if err := s.rdb.Set(ctx, otpKey(email), payload, 2*domain.OTPTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Verify consumes the code with the same outcomes as MemoryOTPStore
func (s *RedisOTPStore) Verify(ctx context.Context, email, code string) error {
	key := otpKey(email)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrMissingCode
	}
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}

	var entry domain.OTPEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("failed to unmarshal otp entry: %w", err)
	}

	if entry.Expired(s.now()) {
		// The key TTL reclaims it if this delete fails
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return errors.Join(domain.ErrExpiredCode, fmt.Errorf("failed to drop expired otp: %w", err))
		}
		return domain.ErrExpiredCode
	}
	if entry.Code != code {
		return domain.ErrInvalidCode
	}

	// A concurrent verify may have consumed it first
	deleted, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if deleted == 0 {
		return domain.ErrMissingCode
	}

	if err := s.rdb.Set(ctx, verifiedKey(email), s.now().Unix(), domain.VerifiedTTL).Err(); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return nil
}

// Verified reports whether the verified marker for email is still live
func (s *RedisOTPStore) Verified(ctx context.Context, email string) (bool, error) {
	n, err := s.rdb.Exists(ctx, verifiedKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read verified marker: %w", err)
	}
	return n > 0, nil
}

// Forget drops the verified marker
func (s *RedisOTPStore) Forget(ctx context.Context, email string) error {
	if err := s.rdb.Del(ctx, verifiedKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to drop verified marker: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis expires keys on its own
func (s *RedisOTPStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}
