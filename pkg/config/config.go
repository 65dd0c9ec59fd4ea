// pkg/config/config.go
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

// Dataset sources
const (
	SourceCSV       = "csv"
	SourceHTTP      = "http"
	SourceSnowflake = "snowflake"
)

// Sinks
const (
	SinkNone     = "none"
	SinkPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	// Dataset
	Source          string
	DatasetName     string
	DatasetPath     string
	DatasetURL      string
	DownloadTimeout time.Duration

	// Database connections, loaded only when the source or sink needs them
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// Output
	Sink        string
	SinkTable   string
	BatchSize   int
	PreviewRows int

	// Cleaning
	DropIncomplete bool
	Sentinel       int64
	YearMin        int64
	YearMax        int64
	OdometerMin    int64
	OdometerMax    int64
	RareThreshold  float64

	// Logging
	LogLevel  string
	LogFormat string
}

// Option adjusts the configuration after the environment is read
type Option func(*Config)

// LoadConfig loads configuration from an optional .env file and environment
// variables, applies opts, then loads the connection settings the chosen
// source and sink need
func LoadConfig(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Source:          strings.ToLower(getEnv("DATASET_SOURCE", SourceCSV)),
		DatasetName:     getEnv("DATASET_NAME", "car_details"),
		DatasetPath:     getEnv("DATASET_PATH", "car_details.csv"),
		DatasetURL:      getEnv("DATASET_URL", ""),
		DownloadTimeout: time.Duration(getEnvAsInt("DOWNLOAD_TIMEOUT_SECONDS", 120)) * time.Second,

		Sink:        strings.ToLower(getEnv("SINK", SinkNone)),
		SinkTable:   getEnv("SINK_TABLE", "public.vehicle_sales_clean"),
		BatchSize:   getEnvAsInt("CHUNK_SIZE", 5000),
		PreviewRows: getEnvAsInt("PREVIEW_ROWS", 5),

		DropIncomplete: getEnvAsBool("DROP_INCOMPLETE_ROWS", true),
		Sentinel:       getEnvAsInt64("INVALID_SENTINEL", -1),
		YearMin:        getEnvAsInt64("YEAR_MIN", 1900),
		YearMax:        getEnvAsInt64("YEAR_MAX", 2026),
		OdometerMin:    getEnvAsInt64("ODOMETER_MIN", 0),
		OdometerMax:    getEnvAsInt64("ODOMETER_MAX", 999999),
		RareThreshold:  getEnvAsFloat("RARE_THRESHOLD", 0.01),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Source == SourceSnowflake {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	if cfg.Sink == SinkPostgres {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV:
		if c.DatasetPath == "" {
			return errors.New("dataset path is required for the csv source")
		}
	case SourceHTTP:
		if c.DatasetURL == "" {
			return errors.New("dataset URL is required for the http source")
		}
	case SourceSnowflake:
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required for the snowflake source")
		}
	default:
		return fmt.Errorf("unknown dataset source %q", c.Source)
	}

	switch c.Sink {
	case SinkNone:
	case SinkPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required for the postgres sink")
		}
		if c.SinkTable == "" {
			return errors.New("sink table is required for the postgres sink")
		}
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}

	if c.BatchSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.PreviewRows < 0 {
		return errors.New("preview rows cannot be negative")
	}

	if c.YearMin > c.YearMax {
		return fmt.Errorf("year range [%d, %d] is empty", c.YearMin, c.YearMax)
	}

	if c.OdometerMin > c.OdometerMax {
		return fmt.Errorf("odometer range [%d, %d] is empty", c.OdometerMin, c.OdometerMax)
	}

	if c.RareThreshold < 0 || c.RareThreshold >= 1 {
		return fmt.Errorf("rare threshold %v must be in [0, 1)", c.RareThreshold)
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
