package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	LLM      LLMConfig
	Solar    SolarConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// LLMConfig holds model-gateway configuration for both stages. Extraction is
// treated as a measurement and pinned to temperature 0; the narrative stage is
// prose and runs warmer.
type LLMConfig struct {
	BaseURL              string
	APIKey               string
	ExtractionModel      string
	NarrativeModel       string
	NarrativeTemperature float32
	MaxTokens            int
	Timeout              time.Duration
	ExtractionDeadline   time.Duration
}

// SolarConfig holds the regional sizing assumptions used for expansion
// estimates. These are assumptions, not physics: the yield varies by region
// and the module wattage by hardware generation.
type SolarConfig struct {
	MonthlyYieldPerKwp float64 // kWh generated per installed kWp per month
	ModuleWatts        float64 // nominal wattage of one module
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		LLM: LLMConfig{
			BaseURL:              getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:               getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			ExtractionModel:      getEnv("LLM_EXTRACTION_MODEL", "gpt-4o"),
			NarrativeModel:       getEnv("LLM_NARRATIVE_MODEL", "gpt-4o"),
			NarrativeTemperature: getEnvAsFloat32("LLM_NARRATIVE_TEMPERATURE", 0.7),
			MaxTokens:            int(getEnvAsInt32("LLM_MAX_TOKENS", 4000)),
			Timeout:              getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			ExtractionDeadline:   getEnvAsDuration("EXTRACTION_DEADLINE", 2*time.Minute),
		},
		Solar: SolarConfig{
			MonthlyYieldPerKwp: getEnvAsFloat64("SOLAR_MONTHLY_YIELD_PER_KWP", 150),
			ModuleWatts:        getEnvAsFloat64("SOLAR_MODULE_WATTS", 400),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Solar.MonthlyYieldPerKwp <= 0 || c.Solar.ModuleWatts <= 0 {
		return NewAppError("CONFIG_ERROR", "solar sizing assumptions must be positive", ErrInvalidInput)
	}
	return nil
}
