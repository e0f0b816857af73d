package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cryptosniper/internal/domain"
)

// LogOTPSender writes codes to the log. Development only.
type LogOTPSender struct {
	log *zap.Logger
}

// NewLogOTPSender creates a sender that logs instead of delivering
func NewLogOTPSender(log *zap.Logger) domain.OTPSender {
	return &LogOTPSender{log: log}
}

// SendOTP logs the code
func (s *LogOTPSender) SendOTP(ctx context.Context, email, phone, code string) error {
	s.log.Info("OTP issued", zap.String("email", email), zap.String("phone", phone), zap.String("code", code))
	return nil
}

// WebhookOTPSender posts codes to the identity provider's delivery endpoint
type WebhookOTPSender struct {
	url        string
	httpClient *http.Client
}

// NewWebhookOTPSender creates a sender that POSTs to url
func NewWebhookOTPSender(url string) domain.OTPSender {
	return &WebhookOTPSender{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OTPDeliveryRequest is the webhook payload
type OTPDeliveryRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code"`
	TTL   int    `json:"ttlSeconds"`
}

// SendOTP posts the code; any non-2xx is an error
func (s *WebhookOTPSender) SendOTP(ctx context.Context, email, phone, code string) error {
	jsonData, err := json.Marshal(OTPDeliveryRequest{
		Email: email,
		Phone: phone,
		Code:  code,
		TTL:   int(domain.OTPTTL / time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call OTP webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("OTP webhook returned error: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}
