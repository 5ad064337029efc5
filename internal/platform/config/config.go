package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr              string
	APIBaseURL        string
	StorePath         string
	DataEncryptionKey string
	Environment       string
	RequestTimeout    time.Duration
}

// fileConfig mirrors the optional YAML config file. Environment variables
// always win over file values.
type fileConfig struct {
	Addr           string `yaml:"addr"`
	APIBaseURL     string `yaml:"api_base_url"`
	StorePath      string `yaml:"store_path"`
	Environment    string `yaml:"environment"`
	RequestTimeout string `yaml:"request_timeout"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present, then an optional YAML file named
// by APP_CONFIG_FILE supplies defaults for anything the environment leaves
// unset.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		APIBaseURL:        getEnv("API_BASE_URL", ""),
		StorePath:         getEnv("STORE_PATH", "data/console.db"),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:       getEnv("APP_ENV", "development"),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	}

	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if os.Getenv("APP_ADDR") == "" && fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if os.Getenv("API_BASE_URL") == "" && fc.APIBaseURL != "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if os.Getenv("STORE_PATH") == "" && fc.StorePath != "" {
		cfg.StorePath = fc.StorePath
	}
	if os.Getenv("APP_ENV") == "" && fc.Environment != "" {
		cfg.Environment = fc.Environment
	}
	if os.Getenv("REQUEST_TIMEOUT") == "" && fc.RequestTimeout != "" {
		parsed, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse request_timeout in %s: %w", path, err)
		}
		cfg.RequestTimeout = parsed
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL")
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("STORE_PATH is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.Environment == "production" && strings.TrimSpace(c.DataEncryptionKey) == "" {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production to encrypt stored credentials")
	}
	return nil
}
