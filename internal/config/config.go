package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ServerConfig struct {
	HTTPAddr        string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PGDSN string

	RedisAddr      string
	RedisPassword  string
	TravelCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OSRMEndpoint   string
	PlacesEndpoint string
	PlacesAPIKey   string
	EnrichEndpoint string
	EnrichAPIKey   string

	SessionTTL        time.Duration
	DefaultTravelMode string

	SolverMaxIterations int
	SolverThreshold     float64
	SolverDamping       float64
	LongDistanceSeconds int

	InitialRadiusMeters float64
	MaxRadiusMeters     float64
	RadiusMultiplier    float64
	MinVenues           int
	MaxVenues           int
	MinRating           float64
	MinReviews          int
	RelaxedMinRating    float64
	RelaxedMinReviews   int
	VenueCategories     []string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		BaseURL:         "http://localhost:8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second, // compute runs synchronously inside a request
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,

		TravelCacheTTL: 10 * time.Minute,
		KafkaTopic:     "session-lifecycle",

		SessionTTL:        24 * time.Hour,
		DefaultTravelMode: "transit",

		SolverMaxIterations: 3,
		SolverThreshold:     0.1,
		SolverDamping:       0.3,
		LongDistanceSeconds: 3600,

		InitialRadiusMeters: 800,
		MaxRadiusMeters:     3000,
		RadiusMultiplier:    1.5,
		MinVenues:           5,
		MaxVenues:           8,
		MinRating:           4.0,
		MinReviews:          50,
		RelaxedMinRating:    3.8,
		RelaxedMinReviews:   30,
		VenueCategories:     []string{"restaurant", "cafe"},

		LogLevel: "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setStringFromEnv(&cfg.BaseURL, "BASE_URL")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.PGDSN = os.Getenv("PG_DSN")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setDurationFromEnv(&cfg.TravelCacheTTL, "TRAVEL_CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setStringFromEnv(&cfg.PlacesEndpoint, "PLACES_ENDPOINT")
	cfg.PlacesAPIKey = os.Getenv("PLACES_API_KEY")
	setStringFromEnv(&cfg.EnrichEndpoint, "ENRICH_ENDPOINT")
	cfg.EnrichAPIKey = os.Getenv("ENRICH_API_KEY")

	setDurationFromEnv(&cfg.SessionTTL, "SESSION_TTL", &errs)
	setStringFromEnv(&cfg.DefaultTravelMode, "DEFAULT_TRAVEL_MODE")

	setIntFromEnv(&cfg.SolverMaxIterations, "SOLVER_MAX_ITERATIONS", &errs)
	setFloatFromEnv(&cfg.SolverThreshold, "SOLVER_THRESHOLD", &errs)
	setFloatFromEnv(&cfg.SolverDamping, "SOLVER_DAMPING", &errs)
	setIntFromEnv(&cfg.LongDistanceSeconds, "LONG_DISTANCE_SECONDS", &errs)

	setFloatFromEnv(&cfg.InitialRadiusMeters, "SEARCH_INITIAL_RADIUS_M", &errs)
	setFloatFromEnv(&cfg.MaxRadiusMeters, "SEARCH_MAX_RADIUS_M", &errs)
	setFloatFromEnv(&cfg.RadiusMultiplier, "SEARCH_RADIUS_MULTIPLIER", &errs)
	setIntFromEnv(&cfg.MinVenues, "MIN_VENUES", &errs)
	setIntFromEnv(&cfg.MaxVenues, "MAX_VENUES", &errs)
	setFloatFromEnv(&cfg.MinRating, "MIN_RATING", &errs)
	setIntFromEnv(&cfg.MinReviews, "MIN_REVIEWS", &errs)
	setFloatFromEnv(&cfg.RelaxedMinRating, "RELAXED_MIN_RATING", &errs)
	setIntFromEnv(&cfg.RelaxedMinReviews, "RELAXED_MIN_REVIEWS", &errs)
	if cats := os.Getenv("VENUE_CATEGORIES"); cats != "" {
		cfg.VenueCategories = splitAndTrim(cats)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.SolverMaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("SOLVER_MAX_ITERATIONS must be > 0"))
	}
	if cfg.SolverDamping <= 0 || cfg.SolverDamping >= 1 {
		errs = append(errs, fmt.Errorf("SOLVER_DAMPING must be in (0, 1)"))
	}
	if cfg.MinVenues > cfg.MaxVenues {
		errs = append(errs, fmt.Errorf("MIN_VENUES must not exceed MAX_VENUES"))
	}
	if cfg.RadiusMultiplier <= 1 {
		errs = append(errs, fmt.Errorf("SEARCH_RADIUS_MULTIPLIER must be > 1"))
	}
	if cfg.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
