package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/simaogato/loanscore-backend/internal/domain"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultAPIToken = "dev-token"
	defaultGRPCAddr = ":8080"
	defaultHTTPAddr = ":8081"
)

// Config holds the service configuration, read from the environment
type Config struct {
	StoreDriver     string
	DBConnStr       string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	ModelPath        string
	ModelLoadTimeout time.Duration
	ModelEagerLoad   bool

	Policy             domain.ValidationPolicy
	StorageTimeout     time.Duration
	PersistMaxAttempts int
	PersistRetryDelay  time.Duration

	GRPCAddr   string
	HTTPAddr   string
	APIToken   string
	AdminToken string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment take precedence over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		StoreDriver:     strings.ToLower(r.str("STORE_DRIVER", DriverSQLite)),
		DBConnStr:       r.str("DB_CONN_STR", ""),
		SQLitePath:      r.str("SQLITE_PATH", "loanscore.db"),
		MaxOpenConns:    r.intVal("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    r.intVal("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: r.durationVal("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		ModelPath:        r.str("MODEL_PATH", "models/loan_model.yaml"),
		ModelLoadTimeout: r.durationVal("MODEL_LOAD_TIMEOUT", 10*time.Second),
		ModelEagerLoad:   r.boolVal("MODEL_EAGER_LOAD", true),

		StorageTimeout:     r.durationVal("STORAGE_TIMEOUT", 5*time.Second),
		PersistMaxAttempts: r.intVal("PERSIST_MAX_ATTEMPTS", 3),
		PersistRetryDelay:  r.durationVal("PERSIST_RETRY_DELAY", 50*time.Millisecond),

		GRPCAddr:   r.str("GRPC_ADDR", defaultGRPCAddr),
		HTTPAddr:   r.str("HTTP_ADDR", defaultHTTPAddr),
		APIToken:   r.str("API_TOKEN", defaultAPIToken),
		AdminToken: r.str("ADMIN_TOKEN", ""),

		RateLimitRPS:   r.floatVal("RATE_LIMIT_RPS", 5),
		RateLimitBurst: r.intVal("RATE_LIMIT_BURST", 10),

		LogLevel:  r.str("LOG_LEVEL", "info"),
		LogFormat: r.str("LOG_FORMAT", "json"),
	}

	policy, err := domain.ParseValidationPolicy(r.str("VALIDATION_POLICY", ""))
	if err != nil {
		r.errs = append(r.errs, err)
	}
	cfg.Policy = policy

	if cfg.DBConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			r.str("DB_HOST", "localhost"),
			r.str("DB_PORT", "5432"),
			r.str("DB_USER", "postgres"),
			r.str("DB_PASSWORD", "postgres"),
			r.str("DB_NAME", "loanscore"),
		)
	}

	if cfg.StoreDriver != DriverPostgres && cfg.StoreDriver != DriverSQLite {
		r.errs = append(r.errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.StoreDriver))
	}
	if cfg.PersistMaxAttempts < 1 {
		r.errs = append(r.errs, errors.New("PERSIST_MAX_ATTEMPTS must be at least 1"))
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		r.errs = append(r.errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(r.errs...))
	}
	return cfg, nil
}

// reader reads typed values with defaults and collects parse errors
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) intVal(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) floatVal(key string, def float64) float64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) boolVal(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *reader) durationVal(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
