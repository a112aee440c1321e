package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Store    StoreConfig
	Logging  LoggingConfig
	Analysis AnalysisConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// StoreConfig describes connectivity to the optional external graph database
// (Neptune/Neo4j) results are mirrored into. Left with an empty URI, no
// store adapter is constructed and the pipeline runs standalone.
type StoreConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Colored       bool
	IncludeCaller bool
}

// AnalysisConfig holds every tunable of the detection pipeline. All fields
// are read-only once loaded and passed by value into the pipeline's
// components; there is no global mutable configuration state.
type AnalysisConfig struct {
	MaxTransactions int

	CycleMinLen        int
	CycleMaxLen        int
	CycleTimeSpanHours float64
	CycleAmountRatio   float64

	SmurfMinCounterparties int
	SmurfWindowHours       float64

	ShellMinLen                int
	ShellMaxLen                int
	ShellIntermediateDegreeMin int
	ShellIntermediateDegreeMax int
	ShellAmountRatio           float64
	ShellMinAmount             float64

	DensityThreshold float64
	FlagThreshold    int

	VelocityWindowHours float64
	VelocityMinTx       int

	// TimestampSlack absorbs slightly out-of-order transactions within a
	// ring without breaking the non-decreasing timestamp constraint.
	TimestampSlack time.Duration
}

// DefaultAnalysisConfig returns the thresholds from spec §6.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxTransactions:            10000,
		CycleMinLen:                3,
		CycleMaxLen:                5,
		CycleTimeSpanHours:         72,
		CycleAmountRatio:           1.25,
		SmurfMinCounterparties:     10,
		SmurfWindowHours:           72,
		ShellMinLen:                3,
		ShellMaxLen:                8,
		ShellIntermediateDegreeMin: 2,
		ShellIntermediateDegreeMax: 3,
		ShellAmountRatio:           3.0,
		ShellMinAmount:             100,
		DensityThreshold:           0.30,
		FlagThreshold:              25,
		VelocityWindowHours:        24,
		VelocityMinTx:              5,
		TimestampSlack:             time.Minute,
	}
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultGraphMaxSessions = 10
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Store: StoreConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Analysis: DefaultAnalysisConfig(),
	}

	cfg.Analysis.MaxTransactions = parseIntWithDefault("ANALYSIS_MAX_TRANSACTIONS", cfg.Analysis.MaxTransactions)
	cfg.Analysis.FlagThreshold = parseIntWithDefault("ANALYSIS_FLAG_THRESHOLD", cfg.Analysis.FlagThreshold)
	cfg.Analysis.DensityThreshold = parseFloatWithDefault("ANALYSIS_DENSITY_THRESHOLD", cfg.Analysis.DensityThreshold)

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	if v := os.Getenv("SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ReadTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.IdleTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_IDLE_TIMEOUT: %w", err)
		}
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		} else {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
		}
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
