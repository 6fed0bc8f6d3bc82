package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds everything the import pipeline needs, loaded from environment
// variables with sensible defaults for the public data sources.
type Config struct {
	Database DatabaseConfig
	Wikidata WikidataConfig
	Overpass OverpassConfig
	Logging  LoggingConfig
}

type DatabaseConfig struct {
	// URL may be empty for dry runs; commands that persist validate it
	// themselves.
	URL            string
	MaxConnections int `validate:"gte=1"`
}

type WikidataConfig struct {
	Endpoint      string  `validate:"required,url"`
	RatePerSecond float64 `validate:"gt=0"`
	Enabled       bool
}

type OverpassConfig struct {
	// Endpoints are tried in order; the query falls through to the next
	// entry on transport failure.
	Endpoints     []string `validate:"required,min=1,dive,url"`
	RatePerSecond float64  `validate:"gt=0"`
	Enabled       bool
}

type LoggingConfig struct {
	Level  string `validate:"oneof=trace debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Wikidata: WikidataConfig{
			Endpoint:      getEnv("WIKIDATA_SPARQL_ENDPOINT", "https://query.wikidata.org/sparql"),
			RatePerSecond: getEnvFloat("WIKIDATA_RATE_LIMIT", 2.0),
			Enabled:       getEnvBool("WIKIDATA_ENABLED", true),
		},
		Overpass: OverpassConfig{
			Endpoints:     getEnvList("OVERPASS_ENDPOINTS", defaultOverpassEndpoints),
			RatePerSecond: getEnvFloat("OVERPASS_RATE_LIMIT", 1.0),
			Enabled:       getEnvBool("OVERPASS_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var defaultOverpassEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList parses a comma-separated environment variable.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
