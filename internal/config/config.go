package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores service and worker settings.
type Config struct {
	Port      int
	DB        DB
	Dispatch  Dispatch
	Geocoder  Geocoder
	Kafka     Kafka
	Auth      Auth
	RateLimit RateLimit
	Log       Log
	Worker    Worker
}

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
	// Migrate applies the embedded schema on startup.
	Migrate bool
}

// DSN returns a postgres:// connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Dispatch tunes the dispatch service.
type Dispatch struct {
	RequestTTL       time.Duration
	NearbyLimit      int
	OperationTimeout time.Duration
	TxIsolation      string
}

// Geocoder stores the geocoding gateway settings. An empty Addr disables geocoding and
// every lookup answers with the default coordinate.
type Geocoder struct {
	Addr        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	DefaultLat  float64
	DefaultLng  float64
}

// Kafka stores broker settings. No brokers means notifications go nowhere and the worker
// has nothing to consume.
type Kafka struct {
	Brokers     []string
	GroupID     string
	OrdersTopic string
	EventsTopic string
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Auth stores token verification settings.
type Auth struct {
	JWTSecret string
}

// RateLimit stores per-caller rate limiting settings.
type RateLimit struct {
	Enabled bool
	Rate    float64
	Burst   int
	TTL     time.Duration
	MaxKeys int
}

// Log selects the logging backend.
type Log struct {
	Level   string
	Backend string
}

// Worker stores background job settings. An empty ExpirySchedule disables the sweep.
type Worker struct {
	ExpirySchedule string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	r := envReader{}
	cfg := &Config{
		Port: r.int("PORT", DefaultPort()),
		DB: DB{
			Host:    r.string("POSTGRES_HOST", defaultDB.Host),
			Port:    r.string("POSTGRES_PORT", defaultDB.Port),
			User:    r.string("POSTGRES_USER", defaultDB.User),
			Pass:    r.string("POSTGRES_PASSWORD", defaultDB.Pass),
			Name:    r.string("POSTGRES_DB", defaultDB.Name),
			Migrate: r.bool("DB_MIGRATE", defaultDB.Migrate),
		},
		Dispatch: Dispatch{
			RequestTTL:       r.duration("DISPATCH_REQUEST_TTL", defaultDispatch.RequestTTL),
			NearbyLimit:      r.int("DISPATCH_NEARBY_LIMIT", defaultDispatch.NearbyLimit),
			OperationTimeout: r.duration("DISPATCH_OPERATION_TIMEOUT", defaultDispatch.OperationTimeout),
			TxIsolation:      r.string("DISPATCH_TX_ISOLATION", defaultDispatch.TxIsolation),
		},
		Geocoder: Geocoder{
			Addr:        r.string("GEOCODER_ADDR", defaultGeocoder.Addr),
			MaxAttempts: r.int("GEOCODER_MAX_ATTEMPTS", defaultGeocoder.MaxAttempts),
			BaseDelay:   r.duration("GEOCODER_BASE_DELAY", defaultGeocoder.BaseDelay),
			MaxDelay:    r.duration("GEOCODER_MAX_DELAY", defaultGeocoder.MaxDelay),
			DefaultLat:  r.float("GEOCODER_DEFAULT_LAT", defaultGeocoder.DefaultLat),
			DefaultLng:  r.float("GEOCODER_DEFAULT_LNG", defaultGeocoder.DefaultLng),
		},
		Kafka: Kafka{
			Brokers:     r.list("KAFKA_BROKERS"),
			GroupID:     r.string("KAFKA_GROUP_ID", defaultKafka.GroupID),
			OrdersTopic: r.string("KAFKA_ORDERS_TOPIC", defaultKafka.OrdersTopic),
			EventsTopic: r.string("KAFKA_EVENTS_TOPIC", defaultKafka.EventsTopic),
		},
		Auth: Auth{
			JWTSecret: r.string("JWT_SECRET", ""),
		},
		RateLimit: RateLimit{
			Enabled: r.bool("RATE_LIMIT_ENABLED", defaultRateLimit.Enabled),
			Rate:    r.float("RATE_LIMIT_RATE", defaultRateLimit.Rate),
			Burst:   r.int("RATE_LIMIT_BURST", defaultRateLimit.Burst),
			TTL:     r.duration("RATE_LIMIT_TTL", defaultRateLimit.TTL),
			MaxKeys: r.int("RATE_LIMIT_MAX_KEYS", defaultRateLimit.MaxKeys),
		},
		Log: Log{
			Level:   r.string("LOG_LEVEL", defaultLog.Level),
			Backend: r.string("LOG_BACKEND", defaultLog.Backend),
		},
		Worker: Worker{
			ExpirySchedule: r.stringAllowEmpty("WORKER_EXPIRY_SCHEDULE", defaultWorker.ExpirySchedule),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.BoolVar(&cfg.DB.Migrate, "migrate", cfg.DB.Migrate, "apply the embedded schema on startup")
	pflag.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	if err := pflag.CommandLine.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", c.Port))
	}
	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %q", c.DB.Port))
	}
	if c.Dispatch.RequestTTL <= 0 {
		errs = append(errs, errors.New("DISPATCH_REQUEST_TTL must be positive"))
	}
	if c.Dispatch.NearbyLimit <= 0 {
		errs = append(errs, errors.New("DISPATCH_NEARBY_LIMIT must be positive"))
	}
	if c.Dispatch.OperationTimeout <= 0 {
		errs = append(errs, errors.New("DISPATCH_OPERATION_TIMEOUT must be positive"))
	}
	switch strings.ToLower(c.Dispatch.TxIsolation) {
	case "read_committed", "repeatable_read", "serializable":
	default:
		errs = append(errs, fmt.Errorf("unknown DISPATCH_TX_ISOLATION: %q", c.Dispatch.TxIsolation))
	}
	if c.Geocoder.MaxAttempts <= 0 {
		errs = append(errs, errors.New("GEOCODER_MAX_ATTEMPTS must be positive"))
	}
	if c.Geocoder.DefaultLat < -90 || c.Geocoder.DefaultLat > 90 ||
		c.Geocoder.DefaultLng < -180 || c.Geocoder.DefaultLng > 180 {
		errs = append(errs, errors.New("geocoder default coordinate out of range"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit rate and burst must be positive"))
	}
	switch c.Log.Backend {
	case "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_BACKEND: %q", c.Log.Backend))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors so Load reports every bad variable at once.
type envReader struct {
	errs []error
}

func (r *envReader) string(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// stringAllowEmpty distinguishes an unset variable from one explicitly set to "".
func (r *envReader) stringAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func (r *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}
