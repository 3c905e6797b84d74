package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"` // mysql or sqlite
	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	SQLitePath             string `env:"SQLITE_PATH" envDefault:"inventory.sqlite3"`

	AuthProvider      string `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase or jwt
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`
	JWTSecret         string `env:"JWT_SECRET"`

	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
	StorageBucket         string `env:"STORAGE_BUCKET"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	PriceSource  string `env:"PRICE_SOURCE" envDefault:"yahoo"` // yahoo or gemini

	AIRateLimit         int           `env:"AI_RATE_LIMIT" envDefault:"15"`
	AIRateWindow        time.Duration `env:"AI_RATE_WINDOW" envDefault:"60s"`
	DefaultAIUsageLimit int           `env:"DEFAULT_AI_USAGE_LIMIT" envDefault:"30"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "mysql":
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return errors.New("DB_USER, DB_NAME and DB_HOST (or INSTANCE_CONNECTION_NAME) are required for mysql")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for sqlite")
		}
	default:
		return errors.New("DB_DRIVER must be mysql or sqlite")
	}

	switch strings.ToLower(c.AuthProvider) {
	case "firebase":
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is not set")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
	default:
		return errors.New("AUTH_PROVIDER must be firebase or jwt")
	}

	if c.AIRateLimit <= 0 || c.AIRateWindow <= 0 {
		return errors.New("AI_RATE_LIMIT and AI_RATE_WINDOW must be positive")
	}
	return nil
}
