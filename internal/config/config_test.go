package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "DB_PATH", "API_BASE_PATH", "LOG_LEVEL"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_Defaults(t *testing.T) {
	cfg := MustLoad()
	if cfg.Port != "8080" || cfg.APIBasePath != "/" || cfg.GinMode != "release" {
		t.Fatalf("server defaults unexpected: %+v", cfg)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Store.DBPath != defaultDSN {
		t.Fatalf("store defaults unexpected: %+v", cfg.Store)
	}
	if cfg.ShutdownTimeout != 10*time.Second || cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("limits unexpected: shutdown=%v body=%d", cfg.ShutdownTimeout, cfg.MaxBodyBytes)
	}
	if cfg.OTEL.ServiceName != "receipt-processor" || cfg.OTEL.Enabled {
		t.Fatalf("otel defaults unexpected: %+v", cfg.OTEL)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("idempotency ttl default unexpected: %v", cfg.IdempotencyTTL)
	}
}

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("MAX_BODY_BYTES", "nope") // falls back to 1 MiB
	t.Setenv("GIN_MODE", "weird")      // normalizes to "release"

	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/")

	t.Setenv("STORE_BACKEND", " SQLite ")
	t.Setenv("DB_PATH", "receipts.db")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.ShutdownTimeout != 5*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.MaxBodyBytes != 1<<20 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.DBPath != "receipts.db" {
		t.Fatalf("store unexpected: %+v", cfg.Store)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
		extra                map[string]string
	}{
		{name: "invalid LOG_LEVEL", key: "LOG_LEVEL", val: "verbose", want: "LOG_LEVEL"},
		{name: "blank PORT", key: "PORT", val: "   ", want: "PORT must not be empty"},
		{name: "non-positive timeout", key: "READ_TIMEOUT", val: "0s", want: "timeouts must be positive"},
		{name: "non-positive shutdown", key: "SHUTDOWN_TIMEOUT", val: "-1s", want: "SHUTDOWN_TIMEOUT"},
		{name: "max header bytes", key: "MAX_HEADER_BYTES", val: "0", want: "MAX_HEADER_BYTES"},
		{name: "max body bytes", key: "MAX_BODY_BYTES", val: "-5", want: "MAX_BODY_BYTES"},
		{name: "unknown backend", key: "STORE_BACKEND", val: "redis", want: "STORE_BACKEND"},
		{name: "blank sqlite path", key: "DB_PATH", val: "   ", want: "DB_PATH must not be empty",
			extra: map[string]string{"STORE_BACKEND": "sqlite"}},
		{name: "hsts max age", key: "HSTS_MAX_AGE", val: "-1s", want: "HSTS_MAX_AGE"},
		{name: "idempotency ttl", key: "IDEMPOTENCY_TTL", val: "0s", want: "IDEMPOTENCY_TTL"},
		{name: "otel sample ratio", key: "OTEL_TRACES_SAMPLER_ARG", val: "1.5", want: "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			for k, v := range tc.extra {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_BlankDBPathIgnoredForMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DB_PATH", "   ")
	if _, err := Load(); err != nil {
		t.Fatalf("memory backend should not need DB_PATH: %v", err)
	}
}

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + strconv.Itoa(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + strconv.Itoa(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got, want := splitCSV(" a, ,b ,  c  ,"), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}
}

func TestHelpers_normalizeBasePath(t *testing.T) {
	for in, want := range map[string]string{
		"":        "/",
		" / ":     "/",
		"//":      "/",
		"v1":      "/v1",
		"/v1/":    "/v1",
		"/api/v1": "/api/v1",
		"//api/":  "/api",
	} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
