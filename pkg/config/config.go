package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings for the Baitline gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	APIKey     string // API key required on /api routes (env: BAITLINE_API_KEY)
	ListenPort string // HTTP listen port (default: "8080")

	// === Detection Thresholds ===
	// A message is classified as a scam when combined confidence >= ScamThreshold.
	ScamThreshold float64 // default: 0.65

	// === Engagement Limits ===
	MaxMessages       int           // hard cap per session before forced termination (default: 20)
	MinIntelMessages  int           // minimum messages before intel-based early termination (default: 8)
	SessionIdleWindow time.Duration // idle gap that terminates an engaging session (default: 30m)

	// === Session Store ===
	SessionSweepInterval time.Duration // how often the expiry sweep runs (default: 5m)
	SessionGracePeriod   time.Duration // how long ended sessions stay readable (default: 5m)

	// === Conversation Context ===
	ContextIdleWindow    time.Duration // idle window before a conversation context is purged (default: 30m)
	ContextSweepInterval time.Duration // context sweep period (default: 5m)

	// === Callback Delivery ===
	CallbackURL        string        // external collector endpoint (env: BAITLINE_CALLBACK_URL)
	CallbackMaxRetries int           // delivery attempts before giving up (default: 3)
	CallbackRetryDelay time.Duration // delay between attempts (default: 2s)
	CallbackTimeout    time.Duration // per-attempt HTTP timeout (default: 10s)

	// === Rate Limiting ===
	RedisAddr       string // optional Redis for the rate limiter; empty = in-memory
	RedisPassword   string
	RateLimitPerMin int // requests per key per minute (default: 120)

	// === Strategy / Pattern Packs ===
	StrategyPackPath string // optional YAML strategy pack overriding the built-ins
	PatternRulesPath string // optional YAML file with extra scam pattern rules
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		APIKey:     os.Getenv("BAITLINE_API_KEY"),
		ListenPort: GetEnv("BAITLINE_PORT", "8080"),

		ScamThreshold: GetEnvFloat("BAITLINE_SCAM_THRESHOLD", 0.65),

		MaxMessages:       GetEnvInt("BAITLINE_MAX_MESSAGES", 20),
		MinIntelMessages:  GetEnvInt("BAITLINE_MIN_INTEL_MESSAGES", 8),
		SessionIdleWindow: envDuration("BAITLINE_SESSION_IDLE_SECONDS", 30*time.Minute),

		SessionSweepInterval: envDuration("BAITLINE_SESSION_SWEEP_SECONDS", 5*time.Minute),
		SessionGracePeriod:   envDuration("BAITLINE_SESSION_GRACE_SECONDS", 5*time.Minute),

		ContextIdleWindow:    envDuration("BAITLINE_CONTEXT_IDLE_SECONDS", 30*time.Minute),
		ContextSweepInterval: envDuration("BAITLINE_CONTEXT_SWEEP_SECONDS", 5*time.Minute),

		CallbackURL:        GetEnv("BAITLINE_CALLBACK_URL", ""),
		CallbackMaxRetries: GetEnvInt("BAITLINE_CALLBACK_RETRIES", 3),
		CallbackRetryDelay: envDuration("BAITLINE_CALLBACK_RETRY_DELAY_SECONDS", 2*time.Second),
		CallbackTimeout:    envDuration("BAITLINE_CALLBACK_TIMEOUT_SECONDS", 10*time.Second),

		RedisAddr:       GetEnv("BAITLINE_REDIS_ADDR", ""),
		RedisPassword:   GetEnv("BAITLINE_REDIS_PASSWORD", ""),
		RateLimitPerMin: GetEnvInt("BAITLINE_RATE_LIMIT_PER_MIN", 120),

		StrategyPackPath: GetEnv("BAITLINE_STRATEGY_PACK", ""),
		PatternRulesPath: GetEnv("BAITLINE_PATTERN_RULES", ""),
	}
}

// NewAggressiveConfig lowers the scam threshold and engages on weaker signals.
// More engagement, more false positives.
func NewAggressiveConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ScamThreshold = 0.50
	return cfg
}

// NewConservativeConfig raises the scam threshold to minimize false engagement.
func NewConservativeConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ScamThreshold = 0.80
	return cfg
}

// RequiredSecret defines a required environment variable for startup validation.
type RequiredSecret struct {
	Name        string // Environment variable name
	Description string // Human-readable description
	Production  bool   // Required in production only (false = required always)
}

// CriticalSecrets returns the secrets required for the gateway to operate.
func CriticalSecrets() []RequiredSecret {
	return []RequiredSecret{
		{Name: "BAITLINE_API_KEY", Description: "API key for gateway authentication", Production: true},
		{Name: "BAITLINE_CALLBACK_URL", Description: "evaluation collector endpoint for final reports", Production: true},
	}
}

// IsProduction reports whether BAITLINE_ENV names a production environment.
func IsProduction() bool {
	env := strings.ToLower(os.Getenv("BAITLINE_ENV"))
	return env == "production" || env == "prod"
}

// Validate checks that all required configuration is present.
// In production mode this returns an error if critical secrets are missing;
// in development it logs warnings but allows startup for local testing.
func (c *Config) Validate() error {
	isProduction := IsProduction()

	var missing []string
	for _, secret := range CriticalSecrets() {
		if os.Getenv(secret.Name) != "" {
			continue
		}
		if secret.Production && !isProduction {
			log.Printf("[STARTUP] Warning: Missing optional secret: %s (%s)", secret.Name, secret.Description)
			continue
		}
		missing = append(missing, secret.Name+" ("+secret.Description+")")
	}

	if c.CallbackURL != "" {
		if _, err := url.ParseRequestURI(c.CallbackURL); err != nil {
			missing = append(missing, "BAITLINE_CALLBACK_URL (must be a valid URL)")
		}
	}

	if c.ScamThreshold < 0 || c.ScamThreshold > 1 {
		return fmt.Errorf("scam threshold %.2f out of range [0,1]", c.ScamThreshold)
	}
	if c.MaxMessages < c.MinIntelMessages {
		return fmt.Errorf("max messages (%d) below intel termination floor (%d)", c.MaxMessages, c.MinIntelMessages)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing.
// Exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// envDuration reads a whole-second environment value as a duration.
func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		secs, err := strconv.Atoi(v)
		if err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
