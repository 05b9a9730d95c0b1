// Package config holds the application settings for the chatbot.
//
// Settings are resolved in three layers: built-in defaults, then an
// optional YAML file, then environment variables. Command line flags are
// applied on top by the CLI. The resolved struct is passed explicitly to
// every component; nothing reads configuration from globals.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Supported LLM providers.
const (
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderAnthropic   = "anthropic"
	ProviderOllama      = "ollama"
	ProviderGemini      = "gemini"
)

// Settings is the resolved application configuration.
type Settings struct {
	// Database connection.
	Driver       string // sqlite, postgres, or mysql
	DatabasePath string // sqlite database file
	DatabaseDSN  string // full DSN for postgres/mysql

	// LLM gateway.
	Provider    string
	Model       string
	Temperature float32

	// Workflow behavior.
	MaxRetries     int           // validator retry budget per query
	RequestTimeout time.Duration // end to end budget for one question

	// HTTP server.
	ListenAddr string

	// Answer cache. An empty RedisAddr disables caching.
	RedisAddr string
	RedisDB   int
	CacheTTL  time.Duration

	// Logging.
	LogLevel  string
	LogFormat string // text or json
}

// Defaults returns the built-in settings used when nothing is configured.
// Model stays empty here; each provider has its own default model.
func Defaults() *Settings {
	return &Settings{
		Driver:         DriverSQLite,
		DatabasePath:   "synthio.db",
		Provider:       ProviderOpenAI,
		Temperature:    0.0,
		MaxRetries:     3,
		RequestTimeout: 120 * time.Second,
		ListenAddr:     ":8080",
		CacheTTL:       5 * time.Minute,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load resolves settings from defaults, the optional YAML file at path,
// and environment variables, in that order of increasing precedence.
// An empty path skips the file layer.
func Load(path string) (*Settings, error) {
	settings := Defaults()

	if path != "" {
		if err := settings.applyFile(path); err != nil {
			return nil, err
		}
	}
	settings.applyEnv()

	return settings, nil
}

// fileConfig mirrors the YAML layout. Numeric fields are pointers so an
// explicit zero in the file is distinguishable from an absent key.
type fileConfig struct {
	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	LLM struct {
		Provider    string   `yaml:"provider"`
		Model       string   `yaml:"model"`
		Temperature *float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Workflow struct {
		MaxRetries            *int `yaml:"max_retries"`
		RequestTimeoutSeconds *int `yaml:"request_timeout_seconds"`
	} `yaml:"workflow"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Cache struct {
		RedisAddr  string `yaml:"redis_addr"`
		RedisDB    *int   `yaml:"redis_db"`
		TTLSeconds *int   `yaml:"ttl_seconds"`
	} `yaml:"cache"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func (s *Settings) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if file.Database.Driver != "" {
		s.Driver = file.Database.Driver
	}
	if file.Database.Path != "" {
		s.DatabasePath = file.Database.Path
	}
	if file.Database.DSN != "" {
		s.DatabaseDSN = file.Database.DSN
	}
	if file.LLM.Provider != "" {
		s.Provider = file.LLM.Provider
	}
	if file.LLM.Model != "" {
		s.Model = file.LLM.Model
	}
	if file.LLM.Temperature != nil {
		s.Temperature = *file.LLM.Temperature
	}
	if file.Workflow.MaxRetries != nil {
		s.MaxRetries = *file.Workflow.MaxRetries
	}
	if file.Workflow.RequestTimeoutSeconds != nil {
		s.RequestTimeout = time.Duration(*file.Workflow.RequestTimeoutSeconds) * time.Second
	}
	if file.Server.ListenAddr != "" {
		s.ListenAddr = file.Server.ListenAddr
	}
	if file.Cache.RedisAddr != "" {
		s.RedisAddr = file.Cache.RedisAddr
	}
	if file.Cache.RedisDB != nil {
		s.RedisDB = *file.Cache.RedisDB
	}
	if file.Cache.TTLSeconds != nil {
		s.CacheTTL = time.Duration(*file.Cache.TTLSeconds) * time.Second
	}
	if file.Logging.Level != "" {
		s.LogLevel = file.Logging.Level
	}
	if file.Logging.Format != "" {
		s.LogFormat = file.Logging.Format
	}

	return nil
}

func (s *Settings) applyEnv() {
	s.Driver = getEnvOrDefault("SYNTHIO_DB_DRIVER", s.Driver)
	s.DatabasePath = getEnvOrDefault("SYNTHIO_DB_PATH", s.DatabasePath)
	s.DatabaseDSN = getEnvOrDefault("SYNTHIO_DB_DSN", s.DatabaseDSN)
	s.Provider = getEnvOrDefault("LLM_PROVIDER", s.Provider)
	s.Model = getEnvOrDefault("LLM_MODEL", s.Model)
	s.Temperature = getEnvFloatOrDefault("LLM_TEMPERATURE", s.Temperature)
	s.MaxRetries = getEnvIntOrDefault("MAX_RETRIES", s.MaxRetries)
	if secs := getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", 0); secs > 0 {
		s.RequestTimeout = time.Duration(secs) * time.Second
	}
	s.ListenAddr = getEnvOrDefault("SYNTHIO_LISTEN_ADDR", s.ListenAddr)
	s.RedisAddr = getEnvOrDefault("REDIS_ADDR", s.RedisAddr)
	s.RedisDB = getEnvIntOrDefault("REDIS_DB", s.RedisDB)
	if secs := getEnvIntOrDefault("CACHE_TTL_SECONDS", 0); secs > 0 {
		s.CacheTTL = time.Duration(secs) * time.Second
	}
	s.LogLevel = getEnvOrDefault("LOG_LEVEL", s.LogLevel)
	s.LogFormat = getEnvOrDefault("LOG_FORMAT", s.LogFormat)
}

// Validate checks the settings for basic correctness. Provider API keys
// are validated by the provider clients themselves, which know their own
// environment variables.
func (s *Settings) Validate() error {
	switch s.Driver {
	case DriverSQLite:
		if s.DatabasePath == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	case DriverPostgres, DriverMySQL:
		if s.DatabaseDSN == "" {
			return fmt.Errorf("database DSN is required for the %s driver", s.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", s.Driver)
	}

	switch s.Provider {
	case ProviderOpenAI, ProviderAzureOpenAI, ProviderAnthropic, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}

	if s.Temperature < 0 || s.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0 and 2.0")
	}

	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than zero")
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as int or a default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloatOrDefault returns the environment variable as float32 or a default
func getEnvFloatOrDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
