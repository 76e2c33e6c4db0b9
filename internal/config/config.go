// README: Config loader with env defaults for HTTP, DB, Redis, Kafka, and dispatch settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RetrievalConfig struct {
	Resolution  int `yaml:"resolution"`
	MaxRing     int `yaml:"max_ring"`
	TargetCount int `yaml:"target_count"`
	MaxPerCell  int `yaml:"max_per_cell"`
}

type DemandConfig struct {
	Window time.Duration `yaml:"window"`
	TTL    time.Duration `yaml:"ttl"`
}

type MatchingConfig struct {
	LockTTL         time.Duration `yaml:"lock_ttl"`
	ReleaseOnReject bool          `yaml:"release_on_reject"`
}

type OutcomeConfig struct {
	PriorMean       float64       `yaml:"prior_mean"`
	SmoothingWeight float64       `yaml:"smoothing_weight"`
	MarkerTTL       time.Duration `yaml:"marker_ttl"`
	Seed            int64         `yaml:"seed"`
	// WeightsFile overrides the response simulator weights.
	WeightsFile string `yaml:"weights_file"`
}

type ScoringConfig struct {
	// Mode is "http" (remote oracle) or "local" (in-process logistic scorer).
	Mode              string        `yaml:"mode"`
	URL               string        `yaml:"url"`
	Timeout           time.Duration `yaml:"timeout"`
	IncludePricePerKm bool          `yaml:"include_price_per_km"`
	// WeightsFile overrides the local scorer weights.
	WeightsFile string `yaml:"weights_file"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"` // gin mode: debug, release, test
	} `yaml:"http"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Firebase struct {
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
	Logger    LoggerConfig    `yaml:"logger"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Demand    DemandConfig    `yaml:"demand"`
	Matching  MatchingConfig  `yaml:"matching"`
	Outcome   OutcomeConfig   `yaml:"outcome"`
	Scoring   ScoringConfig   `yaml:"scoring"`
}

// Load builds the configuration from environment defaults, then overlays the
// YAML file named by ROUTEMATCH_CONFIG when it is set.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("ROUTEMATCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration derived from environment variables only.
func Defaults() Config {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("ROUTEMATCH_HTTP_ADDR", ":9000")
	cfg.HTTP.Mode = envOrDefault("ROUTEMATCH_HTTP_MODE", "release")
	cfg.DB.DSN = os.Getenv("ROUTEMATCH_DB_DSN")
	cfg.Redis.Addr = envOrDefault("ROUTEMATCH_REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("ROUTEMATCH_REDIS_PASSWORD")
	cfg.Redis.DB = envOrDefaultInt("ROUTEMATCH_REDIS_DB", 0)
	cfg.Kafka.Brokers = envList("ROUTEMATCH_KAFKA_BROKERS")
	cfg.Kafka.Topic = envOrDefault("ROUTEMATCH_KAFKA_TOPIC", "routematch.dispatch.outcomes")
	cfg.Firebase.ProjectID = os.Getenv("ROUTEMATCH_FIREBASE_PROJECT_ID")
	cfg.Firebase.CredentialsFile = os.Getenv("ROUTEMATCH_FIREBASE_CREDENTIALS")
	cfg.Logger.Level = envOrDefault("ROUTEMATCH_LOG_LEVEL", "info")
	cfg.Logger.Format = envOrDefault("ROUTEMATCH_LOG_FORMAT", "console")

	cfg.Retrieval.Resolution = envOrDefaultInt("ROUTEMATCH_H3_RESOLUTION", 8)
	cfg.Retrieval.MaxRing = envOrDefaultInt("ROUTEMATCH_MAX_RING", 5)
	cfg.Retrieval.TargetCount = envOrDefaultInt("ROUTEMATCH_TARGET_CANDIDATES", 25)
	cfg.Retrieval.MaxPerCell = envOrDefaultInt("ROUTEMATCH_MAX_PER_CELL", 100)

	cfg.Demand.Window = envOrDefaultDuration("ROUTEMATCH_DEMAND_WINDOW", 60*time.Minute)
	cfg.Demand.TTL = envOrDefaultDuration("ROUTEMATCH_DEMAND_TTL", 2*time.Hour)

	cfg.Matching.LockTTL = envOrDefaultDuration("ROUTEMATCH_LOCK_TTL", 30*time.Second)
	cfg.Matching.ReleaseOnReject = envOrDefaultBool("ROUTEMATCH_RELEASE_ON_REJECT", false)

	cfg.Outcome.PriorMean = envOrDefaultFloat("ROUTEMATCH_PRIOR_ACCEPT_RATE", 0.60)
	cfg.Outcome.SmoothingWeight = envOrDefaultFloat("ROUTEMATCH_SMOOTHING_WEIGHT", 20)
	cfg.Outcome.MarkerTTL = envOrDefaultDuration("ROUTEMATCH_OUTCOME_MARKER_TTL", 24*time.Hour)
	cfg.Outcome.Seed = int64(envOrDefaultInt("ROUTEMATCH_SIMULATION_SEED", 0))
	cfg.Outcome.WeightsFile = os.Getenv("ROUTEMATCH_RESPONSE_WEIGHTS")

	cfg.Scoring.Mode = envOrDefault("ROUTEMATCH_SCORING_MODE", "http")
	cfg.Scoring.URL = envOrDefault("MODEL_API_URL", "http://localhost:8000/predict/batch")
	cfg.Scoring.Timeout = envOrDefaultDuration("ROUTEMATCH_SCORING_TIMEOUT", 2*time.Second)
	cfg.Scoring.IncludePricePerKm = envOrDefaultBool("ROUTEMATCH_SCORING_PRICE_PER_KM", false)
	cfg.Scoring.WeightsFile = os.Getenv("ROUTEMATCH_RANKING_WEIGHTS")
	return cfg
}

// Validate rejects values the dispatch pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Retrieval.Resolution < 0 || c.Retrieval.Resolution > 15 {
		errs = append(errs, fmt.Errorf("retrieval.resolution %d out of range [0,15]", c.Retrieval.Resolution))
	}
	if c.Retrieval.MaxRing < 0 {
		errs = append(errs, errors.New("retrieval.max_ring must be >= 0"))
	}
	if c.Retrieval.TargetCount <= 0 || c.Retrieval.MaxPerCell <= 0 {
		errs = append(errs, errors.New("retrieval.target_count and retrieval.max_per_cell must be > 0"))
	}
	if c.Demand.Window <= 0 || c.Demand.TTL < c.Demand.Window {
		errs = append(errs, errors.New("demand.ttl must be >= demand.window > 0"))
	}
	if c.Matching.LockTTL < time.Second {
		errs = append(errs, errors.New("matching.lock_ttl must be at least 1s"))
	}
	if c.Outcome.PriorMean < 0 || c.Outcome.PriorMean > 1 {
		errs = append(errs, errors.New("outcome.prior_mean must be in [0,1]"))
	}
	if c.Outcome.SmoothingWeight <= 0 {
		errs = append(errs, errors.New("outcome.smoothing_weight must be > 0"))
	}
	switch c.Scoring.Mode {
	case "http":
		if c.Scoring.URL == "" {
			errs = append(errs, errors.New("scoring.url is required in http mode"))
		}
	case "local":
	default:
		errs = append(errs, fmt.Errorf("scoring.mode %q must be http or local", c.Scoring.Mode))
	}
	if c.Scoring.Timeout <= 0 {
		errs = append(errs, errors.New("scoring.timeout must be > 0"))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "1" || v == "true" || v == "yes"
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
