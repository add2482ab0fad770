// Package config handles application configuration.
//
// Go Pattern: Configuration via environment variables with sensible defaults.
// In Go, we typically use structs to hold configuration, and a function to
// load values from environment variables. The host is launched by the
// extension's native-messaging manifest, so the environment is the only
// configuration channel it reliably has.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Go Pattern: We use exported (capitalized) fields so other packages can read them.
type Config struct {
	// Server settings
	Port     string
	BindAddr string // loopback only; the bridge is not a network service
	GinMode  string // "debug", "release", or "test"

	// Rendering
	PDFWorkerURL     string // where the extension serves its page-rendering worker
	StrictValidation bool   // run pdfcpu validation on every load
	StrictPageBounds bool   // out-of-range pages fail instead of clamping

	// Timers
	ReplyDelay    time.Duration
	AnalysisDelay time.Duration

	// Upload limit in bytes; 0 disables it
	MaxUploadBytes int64

	// Locale for summary and reply text (BCP 47, e.g. "en", "ru")
	Locale string

	// Secret for the bridge's session tokens
	SessionSecret string

	// Event loop settings
	EventQueueSize int

	// Rate limiting
	RateLimit int // Requests per minute per client

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
//
// Go Pattern: Functions that can fail return (value, error). This is Go's
// alternative to exceptions — the caller MUST handle the error.
func Load() (*Config, error) {
	ginMode := getEnv("GIN_MODE", "debug")

	cfg := &Config{
		// Server defaults
		Port:     getEnv("PORT", "8765"),
		BindAddr: getEnv("BIND_ADDR", "127.0.0.1"),
		GinMode:  ginMode,

		// Rendering
		PDFWorkerURL:     getEnv("PDF_WORKER_URL", "pdf.worker.min.js"),
		StrictValidation: getEnvBool("STRICT_VALIDATION", false),
		// Development builds fail loudly on bad page indices
		StrictPageBounds: getEnvBool("STRICT_PAGE_BOUNDS", ginMode == "debug"),

		// Simulated thinking / analysis time
		ReplyDelay:    time.Duration(getEnvInt("REPLY_DELAY_MS", 2000)) * time.Millisecond,
		AnalysisDelay: time.Duration(getEnvInt("ANALYSIS_DELAY_MS", 3000)) * time.Millisecond,

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 10)) * 1024 * 1024,

		Locale: getEnv("LOCALE", "en"),

		SessionSecret: getEnv("SESSION_SECRET", ""),

		EventQueueSize: getEnvInt("EVENT_QUEUE_SIZE", 256),

		RateLimit: getEnvInt("RATE_LIMIT", 600),

		// CORS: extension origins are always allowed, this adds dev servers
		AllowedOrigins: getEnvList("CORS_ORIGIN", []string{"http://localhost:5173"}),
	}

	if !isLoopback(cfg.BindAddr) {
		return nil, fmt.Errorf("BIND_ADDR must be a loopback address, got %q", cfg.BindAddr)
	}
	if cfg.MaxUploadBytes < 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must not be negative")
	}
	if cfg.ReplyDelay < 0 || cfg.AnalysisDelay < 0 {
		return nil, fmt.Errorf("REPLY_DELAY_MS and ANALYSIS_DELAY_MS must not be negative")
	}
	if cfg.EventQueueSize < 1 {
		return nil, fmt.Errorf("EVENT_QUEUE_SIZE must be at least 1")
	}

	// Tokens only need to outlive the process, so a fresh secret per run is fine.
	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
	}

	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// getEnv reads an environment variable with a fallback default.
// Go Pattern: Small helper functions are idiomatic. Go favors simple,
// composable functions over complex frameworks.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt reads an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return val
}

// getEnvBool accepts anything strconv.ParseBool does ("1", "true", "F", ...).
func getEnvBool(key string, fallback bool) bool {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return fallback
	}
	return val
}

// getEnvList reads a comma-separated list.
func getEnvList(key string, fallback []string) []string {
	str := getEnv(key, "")
	if str == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(str, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isLoopback(addr string) bool {
	switch addr {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return strings.HasPrefix(addr, "127.")
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
