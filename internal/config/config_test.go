package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CAREER_DISPATCH_MODE", "")
	t.Setenv("SEED_DEMO_CAREER", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("unexpected store driver: %s", cfg.StoreDriver)
	}
	if cfg.CareerDispatchMode != DispatchLocal {
		t.Fatalf("unexpected dispatch mode: %s", cfg.CareerDispatchMode)
	}
	if !cfg.SeedDemoCareer {
		t.Fatalf("expected demo seed in dev")
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.ServiceName != "career-engine-api" {
		t.Fatalf("unexpected service name: %s", cfg.ServiceName)
	}
}

func TestLoad_PostgresRequiresDBURL(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when STORE_DRIVER=postgres without DB_URL")
	}
}

func TestLoad_RejectsUnknownStoreDriver(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown STORE_DRIVER")
	}
}

func TestLoad_QStashDispatchRequiresCredentials(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("CAREER_DISPATCH_MODE", "qstash")
	t.Setenv("QSTASH_TOKEN", "token")
	t.Setenv("QSTASH_TARGET_BASE_URL", "https://career.example.com")
	t.Setenv("INTERNAL_JOB_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when qstash dispatch has no INTERNAL_JOB_TOKEN")
	}

	t.Setenv("INTERNAL_JOB_TOKEN", "job-secret")
	t.Setenv("QSTASH_CIRCUIT_OPEN_TIMEOUT", "30s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CareerDispatchMode != DispatchQStash || cfg.InternalJobToken != "job-secret" {
		t.Fatalf("unexpected qstash config: %+v", cfg)
	}
	if cfg.QStashCircuitOpenTimeout != 30*time.Second {
		t.Fatalf("unexpected circuit open timeout: %s", cfg.QStashCircuitOpenTimeout)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "foo=bar, uptrace-dsn='https://token@api.uptrace.dev?grpc=4317'")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_RejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("CACHE_TTL", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for CACHE_TTL=0s")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "debug",
		"WARNING": "warn",
		"error":   "error",
		"":        "info",
		"verbose": "info",
	}
	for in, want := range cases {
		if got := parseLogLevel(in).String(); got != want {
			t.Fatalf("parseLogLevel(%q): want %s got %s", in, want, got)
		}
	}
}

func TestLoad_SwaggerDefaultsOffInProd(t *testing.T) {
	t.Setenv("SWAGGER_ENABLED", "")

	t.Setenv("APP_ENV", EnvProd)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SwaggerEnabled {
		t.Fatalf("expected swagger disabled in prod")
	}

	t.Setenv("APP_ENV", EnvStage)
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.SwaggerEnabled {
		t.Fatalf("expected swagger enabled outside prod")
	}
}
