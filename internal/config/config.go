package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string        `mapstructure:"PORT"`
	Env          string        `mapstructure:"ENV"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL  string        `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL     string        `mapstructure:"REDIS_URL"`
	CacheTTL     time.Duration `mapstructure:"ESTIMATE_CACHE_TTL"`
	AuthKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer   string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins  []string      `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	SubmitRatePerMinute int           `mapstructure:"SUBMIT_RATE_PER_MINUTE"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`

	GeminiAPIKey         string        `mapstructure:"GEMINI_API_KEY"`
	GeminiBaseURL        string        `mapstructure:"GEMINI_BASE_URL"`
	GeminiModel          string        `mapstructure:"GEMINI_MODEL"`
	EstimatorTimeout     time.Duration `mapstructure:"ESTIMATOR_TIMEOUT"`
	EstimatorMaxTokens   int           `mapstructure:"ESTIMATOR_MAX_TOKENS"`
	EstimatorTemperature float64       `mapstructure:"ESTIMATOR_TEMPERATURE"`
	EstimatorRetries     int           `mapstructure:"ESTIMATOR_RETRIES"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "ESTIMATE_CACHE_TTL",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SUBMIT_RATE_PER_MINUTE",
	"REQUEST_TIMEOUT", "BODY_LIMIT",
	"GEMINI_API_KEY", "GEMINI_BASE_URL", "GEMINI_MODEL",
	"ESTIMATOR_TIMEOUT", "ESTIMATOR_MAX_TOKENS", "ESTIMATOR_TEMPERATURE", "ESTIMATOR_RETRIES",
}

// Load reads the environment, overlaid on an optional .env file in the
// working directory. It does not validate; commands that need a database or
// signing key call Validate.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("ESTIMATE_CACHE_TTL", "24h")
	v.SetDefault("AUTH_ISSUER", "cardiomon")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SUBMIT_RATE_PER_MINUTE", 30)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "256K")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("ESTIMATOR_TIMEOUT", "30s")
	v.SetDefault("ESTIMATOR_MAX_TOKENS", 2048)
	v.SetDefault("ESTIMATOR_TEMPERATURE", 0.2)
	v.SetDefault("ESTIMATOR_RETRIES", 1)

	// Bind explicitly so Unmarshal sees variables that have no default.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks what serve and migrate need. Outside development a signing
// key of at least 32 bytes is mandatory, and production also needs a Gemini
// key so diet entries with food items can be scored.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && len(c.AuthKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in production")
	}
	if c.EstimatorTimeout <= 0 {
		return fmt.Errorf("ESTIMATOR_TIMEOUT must be positive, got %s", c.EstimatorTimeout)
	}
	if c.RequestTimeout > 0 && c.EstimatorTimeout >= c.RequestTimeout {
		return fmt.Errorf("ESTIMATOR_TIMEOUT (%s) must be shorter than REQUEST_TIMEOUT (%s)", c.EstimatorTimeout, c.RequestTimeout)
	}
	if c.EstimatorTemperature < 0 || c.EstimatorTemperature > 2 {
		return fmt.Errorf("ESTIMATOR_TEMPERATURE must be between 0 and 2, got %v", c.EstimatorTemperature)
	}
	if c.EstimatorMaxTokens <= 0 {
		return fmt.Errorf("ESTIMATOR_MAX_TOKENS must be positive, got %d", c.EstimatorMaxTokens)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
