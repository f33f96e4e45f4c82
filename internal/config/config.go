package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	StorageBackend         string
	UploadDir              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	LLMMaxRetries  int
	LLMRetryDelay  time.Duration

	PlanCacheTTL time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration from environment variables and an optional .env
// file. The JWT secret and the model API key have no sane defaults, so
// startup fails fast without them.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSHIVE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassHive API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("cloudinary.folder", "classhive/uploads")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", "2s")
	v.SetDefault("plan.cache_ttl", "24h")

	llmTimeout, err := time.ParseDuration(v.GetString("llm.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid llm timeout: %w", err)
	}

	llmRetryDelay, err := time.ParseDuration(v.GetString("llm.retry_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid llm retry delay: %w", err)
	}

	planTTL, err := time.ParseDuration(v.GetString("plan.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid plan cache ttl: %w", err)
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		JWTSecret:   v.GetString("jwt.secret"),

		StorageBackend:         strings.ToLower(v.GetString("storage.backend")),
		UploadDir:              v.GetString("upload.dir"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),

		LLMAPIKey:      v.GetString("llm.api_key"),
		LLMBaseURL:     v.GetString("llm.base_url"),
		LLMModel:       v.GetString("llm.model"),
		LLMTemperature: v.GetFloat64("llm.temperature"),
		LLMMaxTokens:   v.GetInt("llm.max_tokens"),
		LLMTimeout:     llmTimeout,
		LLMMaxRetries:  v.GetInt("llm.max_retries"),
		LLMRetryDelay:  llmRetryDelay,

		PlanCacheTTL: planTTL,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LLMAPIKey == "" {
		return Config{}, fmt.Errorf("llm api key must be provided")
	}

	return cfg, nil
}
