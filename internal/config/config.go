// Package config provides configuration for the lifeline service.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "LIFELINE_MODE"
	// ModeMock swaps every external provider for an in-process fake.
	ModeMock = "MOCK"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort      int
	PublicBaseURL string
	Mode          string
	OrgName       string
	AdminAPIKey   string

	// Database
	DatabaseURL string

	// Telephony (Twilio)
	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioPhoneNumber     string
	TwilioValidateWebhook bool
	TwilioMaxRPS          int

	// Speech synthesis
	TTSProvider       string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsBaseURL string
	ElevenLabsModelID string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAITTSVoice    string

	// Dispatch
	PacingInterval  time.Duration
	ProviderTimeout time.Duration

	// Audio artifacts
	AudioDir               string
	AudioCleanupDelay      time.Duration
	CleanupFlushOnShutdown bool

	// Call watch feed
	WSPingInterval time.Duration
	WSWriteTimeout time.Duration

	// Notification policy (rego); empty uses the built-in policy
	PolicyFile string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:               getEnvInt("HTTP_PORT", 8080),
		PublicBaseURL:          strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		Mode:                   getEnv(EnvMode, ""),
		OrgName:                getEnv("ORG_NAME", "Lifeline Mental Health Support"),
		AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
		DatabaseURL:            getEnv("DATABASE_URL", "file:lifeline.db?cache=shared&mode=rwc"),
		TwilioAccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:      getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioValidateWebhook:  getEnvBool("TWILIO_VALIDATE_WEBHOOKS", false),
		TwilioMaxRPS:           getEnvInt("TWILIO_MAX_RPS", 5),
		TTSProvider:            strings.ToLower(getEnv("TTS_PROVIDER", "elevenlabs")),
		ElevenLabsAPIKey:       getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:      getEnv("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
		ElevenLabsBaseURL:      getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		ElevenLabsModelID:      getEnv("ELEVENLABS_MODEL_ID", "eleven_monolingual_v1"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", ""),
		OpenAITTSVoice:         getEnv("OPENAI_TTS_VOICE", "nova"),
		PacingInterval:         time.Duration(getEnvInt("PACING_INTERVAL_MS", 2000)) * time.Millisecond,
		ProviderTimeout:        time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 15000)) * time.Millisecond,
		AudioDir:               getEnv("AUDIO_DIR", filepath.Join(os.TempDir(), "lifeline-audio")),
		AudioCleanupDelay:      time.Duration(getEnvInt("AUDIO_CLEANUP_DELAY_MS", 60000)) * time.Millisecond,
		CleanupFlushOnShutdown: getEnvBool("CLEANUP_FLUSH_ON_SHUTDOWN", true),
		WSPingInterval:         time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:         time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		PolicyFile:             getEnv("POLICY_FILE", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// MockMode reports whether external providers should be faked.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, ModeMock)
}

// TwilioConfigured reports whether telephony credentials are complete.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// CallResponseURL is the digit-capture callback address handed to the provider.
func (c *Config) CallResponseURL() string {
	return c.PublicBaseURL + "/api/emergency/call-response"
}

// CallStatusURL is the lifecycle callback address handed to the provider.
func (c *Config) CallStatusURL() string {
	return c.PublicBaseURL + "/api/emergency/call-status"
}

// AudioURL is the public address of a persisted audio artifact.
func (c *Config) AudioURL(name string) string {
	return c.PublicBaseURL + "/audio/" + name
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
