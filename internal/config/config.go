package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all client settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// CORSAllowedOrigins lists origins allowed to call the host; "*" allows all.
	CORSAllowedOrigins []string

	// Forecast service. An empty base URL routes relative to the UI's origin.
	ForecastBaseURL string
	ForecastTimeout time.Duration // 0 disables the client-side timeout

	// Geocoding configuration.
	GeocodingURL       string
	GeocodingTimeout   time.Duration
	GeocodingCacheSize int
	GeocodingRateLimit float64 // requests per second
	SuggestionCount    int
	SuggestionLanguage string

	// Location resolver behaviour.
	DebounceInterval time.Duration
	MinQueryLength   int

	// Submission outcome stream.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaOutcomeTopic string
	KafkaWriteTimeout time.Duration // bounds each outcome publish
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	forecastTimeout, err := parseDuration("FORECAST_TIMEOUT", "0s", true)
	if err != nil {
		return nil, err
	}
	geocodingTimeout, err := parseDuration("GEOCODING_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	debounce, err := parseDuration("DEBOUNCE_INTERVAL", "300ms", false)
	if err != nil {
		return nil, err
	}
	kafkaWriteTimeout, err := parseDuration("KAFKA_WRITE_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("GEOCODING_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	suggestionCount, err := parsePositiveInt("SUGGESTION_COUNT", 5)
	if err != nil {
		return nil, err
	}
	minQueryLength, err := parsePositiveInt("MIN_QUERY_LENGTH", 2)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODING_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid GEOCODING_RATE_LIMIT")
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		ForecastBaseURL: strings.TrimRight(os.Getenv("FORECAST_API_URL"), "/"),
		ForecastTimeout: forecastTimeout,

		GeocodingURL:       strings.TrimRight(sharedcfg.EnvOrDefault("GEOCODING_URL", "https://geocoding-api.open-meteo.com/v1"), "/"),
		GeocodingTimeout:   geocodingTimeout,
		GeocodingCacheSize: cacheSize,
		GeocodingRateLimit: rateLimit,
		SuggestionCount:    suggestionCount,
		SuggestionLanguage: sharedcfg.EnvOrDefault("SUGGESTION_LANGUAGE", "en"),

		DebounceInterval: debounce,
		MinQueryLength:   minQueryLength,

		KafkaEnabled:      os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaOutcomeTopic: sharedcfg.EnvOrDefault("KAFKA_OUTCOME_TOPIC", "event-forecast-outcomes"),
		KafkaWriteTimeout: kafkaWriteTimeout,
	}

	if cfg.GeocodingURL == "" {
		return nil, errors.New("GEOCODING_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaOutcomeTopic == "" {
		return nil, errors.New("KAFKA_OUTCOME_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
