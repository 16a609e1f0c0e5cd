package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading pipeline.
type Config struct {
	AppName string
	AppEnv  string

	GradingProvider    string
	GradingEndpointURL string
	RequestTimeout     time.Duration
	MaxAttempts        int
	RetryBaseDelay     time.Duration
	OpenAIAPIKey       string
	OpenAIModel        string

	SourceKind       string
	DocumentDir      string
	CloudinaryCloud  string
	CloudinaryKey    string
	CloudinarySecret string
	ObjectPrefix     string

	DatabaseURL       string
	RedisURL          string
	AnalyticsCacheTTL time.Duration

	ValidateResults bool

	TerminateEnabled     bool
	InstanceMetadataURL  string
	InstanceTerminateURL string

	MetricsAddr string
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("grading.provider", "endpoint")
	v.SetDefault("grading.timeout", "60s")
	v.SetDefault("grading.max_attempts", 3)
	v.SetDefault("grading.retry_base_delay", "1s")
	v.SetDefault("source.kind", "local")
	v.SetDefault("source.dir", "./documents")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("validate.results", true)

	timeout, err := time.ParseDuration(v.GetString("grading.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading timeout: %w", err)
	}

	baseDelay, err := time.ParseDuration(v.GetString("grading.retry_base_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid retry base delay: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("analytics.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics cache ttl: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		GradingProvider:      strings.ToLower(v.GetString("grading.provider")),
		GradingEndpointURL:   v.GetString("grading.endpoint_url"),
		RequestTimeout:       timeout,
		MaxAttempts:          v.GetInt("grading.max_attempts"),
		RetryBaseDelay:       baseDelay,
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai_model"),
		SourceKind:           strings.ToLower(v.GetString("source.kind")),
		DocumentDir:          v.GetString("source.dir"),
		CloudinaryCloud:      v.GetString("cloudinary.cloud_name"),
		CloudinaryKey:        v.GetString("cloudinary.api_key"),
		CloudinarySecret:     v.GetString("cloudinary.api_secret"),
		ObjectPrefix:         v.GetString("cloudinary.prefix"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		AnalyticsCacheTTL:    cacheTTL,
		ValidateResults:      v.GetBool("validate.results"),
		TerminateEnabled:     v.GetBool("terminate.enabled"),
		InstanceMetadataURL:  v.GetString("terminate.metadata_url"),
		InstanceTerminateURL: v.GetString("terminate.control_url"),
		MetricsAddr:          v.GetString("metrics.addr"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.GradingProvider {
	case "endpoint":
		if cfg.GradingEndpointURL == "" {
			return Config{}, fmt.Errorf("grading endpoint url must be provided")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided")
		}
	default:
		return Config{}, fmt.Errorf("unknown grading provider %q", cfg.GradingProvider)
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return cfg, nil
}
