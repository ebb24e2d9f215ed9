// Package config reads the receipt-processor settings from the environment.
//
// Every variable has a default, so an empty environment yields a working
// in-memory service on :8080. Values that fail to parse fall back to their
// default; values that parse but make no sense fail Load.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// defaultDSN is an in-memory SQLite database shared by the pool; it is gone
// when the process exits.
const defaultDSN = "file:receipts?mode=memory&cache=shared"

// CORSConfig lists the browser origins allowed to call the API. Empty allows
// any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig controls Strict-Transport-Security.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string // host:port of the OTLP gRPC collector
	Insecure    bool
	ServiceName string
	SampleRatio float64 // 0..1
}

// StoreConfig selects where receipts and scores live.
type StoreConfig struct {
	Backend string // memory|sqlite
	DBPath  string // SQLite DSN or file path; sqlite only
}

// Config is the full service configuration.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	GinMode           string

	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string // always starts with "/", never ends with one unless root

	Store StoreConfig

	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is how long an Idempotency-Key keeps replaying its id.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad is Load for main; it panics on an invalid environment.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds a Config from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           ginMode(getenv("GIN_MODE", "release")),

		LogLevel:       logLevel(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(getenv("STORE_BACKEND", BackendMemory))),
			DBPath:  getenv("DB_PATH", defaultDSN),
		},

		CORS: CORSConfig{AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "receipt-processor"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	return cfg, validate(cfg)
}

// validate returns the first rule cfg breaks.
func validate(cfg Config) error {
	checks := []struct {
		bad bool
		msg string
	}{
		{!oneOf(cfg.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"),
			"LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(cfg.Port) == "", "PORT must not be empty"},
		{cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0,
			"timeouts must be positive durations"},
		{cfg.ShutdownTimeout <= 0, "SHUTDOWN_TIMEOUT must be > 0"},
		{cfg.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},
		{cfg.MaxBodyBytes <= 0, "MAX_BODY_BYTES must be > 0"},
		{!oneOf(cfg.Store.Backend, BackendMemory, BackendSQLite), "STORE_BACKEND must be one of: memory, sqlite"},
		{cfg.Store.Backend == BackendSQLite && strings.TrimSpace(cfg.Store.DBPath) == "", "DB_PATH must not be empty"},
		{cfg.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{cfg.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}
	for _, c := range checks {
		if c.bad {
			return errors.New(c.msg)
		}
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ginMode maps anything gin would not recognise to release.
func ginMode(s string) string {
	s = strings.ToLower(s)
	if oneOf(s, "debug", "release", "test") {
		return s
	}
	return "release"
}

// logLevel lowercases s and accepts "warning" as zerolog's "warn".
func logLevel(s string) string {
	s = strings.ToLower(s)
	if s == "warning" {
		return "warn"
	}
	return s
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// parsed reads k with parse, keeping def when k is unset or unparsable.
func parsed[T any](k string, def T, parse func(string) (T, error)) T {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func getfloat(k string, def float64) float64 {
	return parsed(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getint(k string, def int) int { return parsed(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return parsed(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return parsed(k, def, func(s string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// splitCSV splits a comma list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath turns "api/v1/" into "/api/v1"; blank and "//" become "/".
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
