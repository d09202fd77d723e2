// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the chat backend configuration.
type Config struct {
	Port           string
	APIBase        string // base URL the browser UI posts to; empty = same origin
	AllowedOrigins []string
	OpenAI         OpenAIConfig
	Media          MediaConfig
	Logging        LoggingConfig
}

// OpenAIConfig selects the provider endpoint, credentials and models.
type OpenAIConfig struct {
	APIKey      string
	ParamPrefix string // when set, the API key is read from SSM below this prefix
	BaseURL     string
	ChatModel   string
	Temperature float32
	ImageModel  string
	ImageSize   string
	SpeechModel string
	SpeechVoice string
	Timeout     time.Duration // 0 keeps the transport default (no timeout)
}

// MediaConfig describes the bucket generated media is uploaded to.
type MediaConfig struct {
	Bucket        string
	Endpoint      string // S3-compatible endpoint override
	PublicBaseURL string
	UsePathStyle  bool
	ACL           string
}

// LoggingConfig controls log output format and verbosity.
type LoggingConfig struct {
	Level  string
	Format string
}

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	APIBase string
	Timeout time.Duration
	Logging LoggingConfig
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// Load reads the backend configuration from environment variables.
func Load() (*Config, error) {
	temperature, err := getEnvFloat32("OPENAI_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("UPSTREAM_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		APIBase:        strings.TrimRight(getEnv("CHAT_API_BASE", ""), "/"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			ParamPrefix: getEnv("PARAM_PREFIX", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			ChatModel:   getEnv("OPENAI_MODEL", "gpt-4"),
			Temperature: temperature,
			ImageModel:  getEnv("IMAGE_MODEL", "dall-e-3"),
			ImageSize:   getEnv("IMAGE_SIZE", "1024x1024"),
			SpeechModel: getEnv("TTS_MODEL", "tts-1"),
			SpeechVoice: getEnv("TTS_VOICE", "alloy"),
			Timeout:     timeout,
		},
		Media: MediaConfig{
			Bucket:        getEnv("MEDIA_BUCKET", ""),
			Endpoint:      getEnv("MEDIA_ENDPOINT", ""),
			PublicBaseURL: getEnv("MEDIA_PUBLIC_BASE_URL", ""),
			UsePathStyle:  getEnvBool("MEDIA_USE_PATH_STYLE", false),
			ACL:           getEnv("MEDIA_ACL", "public-read"),
		},
		Logging: loadLogging(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadClient reads the terminal client configuration.
func LoadClient() (*ClientConfig, error) {
	timeout, err := getEnvDuration("CHAT_CLIENT_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(getEnv("CHAT_API_BASE", ""), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &ClientConfig{
		APIBase: base,
		Timeout: timeout,
		Logging: loadLogging(),
	}, nil
}

func loadLogging() LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.OpenAI.APIKey == "" && c.OpenAI.ParamPrefix == "" {
		return fmt.Errorf("one of OPENAI_API_KEY or PARAM_PREFIX must be set")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if c.OpenAI.Timeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be >= 0")
	}
	if c.Media.Bucket == "" {
		return fmt.Errorf("MEDIA_BUCKET cannot be empty")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	return nil
}

// UsesParamStore reports whether the API key comes from SSM.
func (c *Config) UsesParamStore() bool {
	return c.OpenAI.APIKey == "" && c.OpenAI.ParamPrefix != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloat32(key string, fallback float32) (float32, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return float32(f), nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
