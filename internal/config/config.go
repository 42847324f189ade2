package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port         int    `envconfig:"PORT" default:"3000"`
	Environment  string `envconfig:"ENV" default:"development"`
	RateLimitMax int    `envconfig:"RATE_LIMIT_MAX" default:"600"`

	// Storage
	DataDir         string `envconfig:"DATA_DIR" default:"data"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	AutoMigrate     bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	LedgerBackend   string `envconfig:"LEDGER_BACKEND" default:"file"`
	RegistryBackend string `envconfig:"REGISTRY_BACKEND" default:"file"`
	LockBackend     string `envconfig:"LOCK_BACKEND" default:"local"`
	RedisURL        string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	EncodingCache   string `envconfig:"ENCODING_CACHE" default:"memory"`

	// Recognition
	Detector           string  `envconfig:"DETECTOR" default:"opencv"`
	Encoder            string  `envconfig:"ENCODER" default:"dlib"`
	ModelsDir          string  `envconfig:"MODELS_DIR" default:"models"`
	CascadePath        string  `envconfig:"CASCADE_PATH" default:"models/haarcascade_frontalface_default.xml"`
	DeepFaceURL        string  `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	MatchThreshold     float64 `envconfig:"MATCH_THRESHOLD" default:"0.4"`
	EncodingDim        int     `envconfig:"ENCODING_DIM" default:"128"`
	RecognitionWorkers int     `envconfig:"RECOGNITION_WORKERS"`
	ScanLimitPerMinute int     `envconfig:"SCAN_LIMIT_PER_MINUTE" default:"0"`

	// Notification
	Notifier      string `envconfig:"NOTIFIER" default:"log"`
	SMTPHost      string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	EmailUser     string `envconfig:"EMAIL_USER"`
	EmailPass     string `envconfig:"EMAIL_PASS"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	Timezone      string `envconfig:"TIMEZONE" default:"Local"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MatchThreshold <= 0 {
		return fmt.Errorf("MATCH_THRESHOLD must be positive, got %v", c.MatchThreshold)
	}
	if c.EncodingDim <= 0 {
		return fmt.Errorf("ENCODING_DIM must be positive, got %d", c.EncodingDim)
	}
	if (c.LedgerBackend == "postgres" || c.RegistryBackend == "postgres" || c.EncodingCache == "postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for postgres backends")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Workers returns the recognition concurrency limit, defaulting to GOMAXPROCS.
func (c *Config) Workers() int {
	if c.RecognitionWorkers > 0 {
		return c.RecognitionWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// Location resolves TIMEZONE, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
