package configs

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"

	devSessionSecret = "dev-only-session-secret"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Market   MarketConfig
	Ops      OpsConfig
	Log      LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	AllowOrigins    []string
	BodyLimit       string
	ShutdownTimeout time.Duration

	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For.
	// Empty means the TCP peer address is the client address.
	TrustedProxies []*net.IPNet
}

// DatabaseConfig holds database configuration. An empty URL keeps every
// entity in process memory.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration. An empty URL keeps OTPs and
// sessions in process memory.
type RedisConfig struct {
	URL string
}

// KafkaConfig holds the domain event sink. No brokers means events are
// only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuthConfig holds session and rate limit settings
type AuthConfig struct {
	SessionSecret  string
	RateLimitRPS   float64
	RateLimitBurst int
}

// OTPConfig holds OTP delivery settings. An empty webhook URL logs codes
// instead of sending them.
type OTPConfig struct {
	WebhookURL string
}

// MarketConfig holds the mark price feed. An empty URL disables the
// revaluation job.
type MarketConfig struct {
	PriceURL    string
	RevalueSpec string
}

// OpsConfig holds the metrics and health listener
type OpsConfig struct {
	Port      string
	SweepSpec string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	proxies, err := parseCIDRs(splitList(v.GetString("TRUSTED_PROXIES")))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("PORT"),
			Env:             v.GetString("GO_ENV"),
			AllowOrigins:    splitList(v.GetString("CORS_ALLOW_ORIGINS")),
			BodyLimit:       v.GetString("BODY_LIMIT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			TrustedProxies:  proxies,
		},
		Database: DatabaseConfig{
			URL: v.GetString("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Auth: AuthConfig{
			SessionSecret:  v.GetString("SESSION_SECRET"),
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		},
		OTP: OTPConfig{
			WebhookURL: v.GetString("OTP_WEBHOOK_URL"),
		},
		Market: MarketConfig{
			PriceURL:    v.GetString("MARKET_PRICE_URL"),
			RevalueSpec: v.GetString("REVALUE_SCHEDULE"),
		},
		Ops: OpsConfig{
			Port:      v.GetString("OPS_PORT"),
			SweepSpec: v.GetString("SWEEP_SCHEDULE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", EnvDevelopment)
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("KAFKA_TOPIC", "cryptosniper.events")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("REVALUE_SCHEDULE", "*/1 * * * *")
	v.SetDefault("OPS_PORT", "9090")
	v.SetDefault("SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

func (c *Config) validate() error {
	if c.Auth.SessionSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("SESSION_SECRET is required when GO_ENV=%s", c.Server.Env)
		}
		c.Auth.SessionSecret = devSessionSecret
	}
	if c.Auth.RateLimitRPS <= 0 || c.Auth.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Server.Port == c.Ops.Port {
		return fmt.Errorf("PORT and OPS_PORT must differ (both %s)", c.Server.Port)
	}
	return nil
}

// parseCIDRs accepts CIDRs or bare IPs, which become single-host ranges
func parseCIDRs(items []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(items))
	for _, item := range items {
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", item)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

// splitList parses a comma separated env value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
