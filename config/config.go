package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Sidecar   SidecarConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	OODA      OODAConfig
	Profile   ProfileConfig
	Vision    VisionConfig
	Patch     PatchConfig
}

// ServerConfig controls the agent's RPC HTTP server.
type ServerConfig struct {
	Addr string // default: "0.0.0.0:50051" (CHIMERA_AGENT_ADDR)
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	Headless  bool   // default: true
	Bin       string // CHROME_BIN override
	NoSandbox bool   // default: true (containers)
	ViewportW int    // default: 1920
	ViewportH int    // default: 1080

	// DisableSanitization skips pre-document script injection entirely.
	// Test-only hook for exercising the verifier's fail-fast startup path
	// against a dirty engine; never set in a real deployment.
	DisableSanitization bool // CHIMERA_DISABLE_SANITIZATION, default: false
}

// SidecarConfig controls the CONNECT-tunneling proxy and impersonating client.
type SidecarConfig struct {
	ProxyPort int // default: 8080 (CHIMERA_PROXY_PORT)
}

// PatchConfig controls startup binary patching.
type PatchConfig struct {
	Enabled bool // CHIMERA_BINARY_PATCH, default: true
}

// VisionConfig points at the external vision-grounding collaborator.
type VisionConfig struct {
	Addr string // CHIMERA_VISION_ADDR
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// OODAConfig controls the closed-loop action executor.
type OODAConfig struct {
	// MultiStepObjectives is passed to RunObjective, which stops after one
	// iteration either way; when true it also logs a debug line noting that
	// the remaining iterations are skipped.
	MultiStepObjectives bool
	MaxObjectiveIters   int // default: 20
	DefaultMaxRetries   int // default: 3
}

// ProfileConfig controls the SyntheticProfile two-tier store.
type ProfileConfig struct {
	RedisURL    string // REDIS_URL / CHIMERA_REDIS_URL
	ProfilesDir string // default: "./chimera-profiles"
	TTL         time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: envOr("CHIMERA_AGENT_ADDR", "0.0.0.0:50051"),
			Mode: envOr("CHIMERA_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:            envBoolOr("CHIMERA_HEADLESS", true),
			Bin:                 os.Getenv("CHROME_BIN"),
			NoSandbox:           envBoolOr("CHIMERA_NO_SANDBOX", true),
			ViewportW:           envIntOr("CHIMERA_VIEWPORT_W", 1920),
			ViewportH:           envIntOr("CHIMERA_VIEWPORT_H", 1080),
			DisableSanitization: envBoolOr("CHIMERA_DISABLE_SANITIZATION", false),
		},
		Sidecar: SidecarConfig{
			ProxyPort: envIntOr("CHIMERA_PROXY_PORT", 8080),
		},
		Patch: PatchConfig{
			Enabled: envBoolOr("CHIMERA_BINARY_PATCH", true),
		},
		Vision: VisionConfig{
			Addr: os.Getenv("CHIMERA_VISION_ADDR"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CHIMERA_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CHIMERA_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CHIMERA_RATE_RPS", 5.0),
			Burst:             envIntOr("CHIMERA_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("CHIMERA_LOG_LEVEL", "info"),
			Format: envOr("CHIMERA_LOG_FORMAT", "json"),
		},
		OODA: OODAConfig{
			MultiStepObjectives: envBoolOr("CHIMERA_MULTISTEP_OBJECTIVES", false),
			MaxObjectiveIters:   envIntOr("CHIMERA_MAX_OBJECTIVE_ITERS", 20),
			DefaultMaxRetries:   envIntOr("CHIMERA_DEFAULT_MAX_RETRIES", 3),
		},
		Profile: ProfileConfig{
			RedisURL:    firstNonEmpty(os.Getenv("CHIMERA_REDIS_URL"), os.Getenv("REDIS_URL")),
			ProfilesDir: envOr("CHIMERA_PROFILES_DIR", "./chimera-profiles"),
			TTL:         envDurationOr("CHIMERA_PROFILE_TTL", 30*24*time.Hour),
		},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
