package config

import (
	"testing"
	"time"

	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Run("defaults to dev", func(t *testing.T) {
		t.Setenv("APP_ENV", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.AppEnv != EnvDev {
			t.Fatalf("expected AppEnv=%s, got %s", EnvDev, cfg.AppEnv)
		}
	})

	t.Run("rejects unknown env", func(t *testing.T) {
		t.Setenv("APP_ENV", "qa")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for APP_ENV=qa")
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	for _, key := range []string{
		"APP_TIMEZONE", "APP_LOG_LEVEL", "CACHE_TTL", "CACHE_BACKEND", "SUMMARY_LOOKBACK_DAYS",
		"WATCHDOG_SCHEDULE", "FREQUENCY_SCHEDULE", "SOURCE_MAX_RETRIES", "FREETEXT_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "Asia/Ho_Chi_Minh" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel)
	}
	if cfg.CacheTTL != 240*time.Hour {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.CacheBackend != CacheBackendMemory {
		t.Fatalf("unexpected cache backend: %s", cfg.CacheBackend)
	}
	if cfg.SummaryLookbackDays != 2 {
		t.Fatalf("unexpected lookback: %d", cfg.SummaryLookbackDays)
	}
	if cfg.WatchdogSchedule != "@every 1h" {
		t.Fatalf("unexpected watchdog schedule: %q", cfg.WatchdogSchedule)
	}
	if cfg.FrequencySchedule != "30 19 * * *" {
		t.Fatalf("unexpected frequency schedule: %q", cfg.FrequencySchedule)
	}
	if cfg.SourceMaxRetries != 2 {
		t.Fatalf("unexpected source retries: %d", cfg.SourceMaxRetries)
	}
	if cfg.FreeTextEnabled {
		t.Fatalf("expected free text extraction disabled by default")
	}
	if !cfg.SourceCircuit.Enabled || cfg.SourceCircuit.FailureThreshold != 5 {
		t.Fatalf("unexpected source circuit: %+v", cfg.SourceCircuit)
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "uptrace-dsn=https://token@api.uptrace.dev/1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev/1" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without dsn")
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "kqsx-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "kqsx-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("default wildcard", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("redis requires addr", func(t *testing.T) {
		t.Setenv("CACHE_ENABLED", "true")
		t.Setenv("CACHE_BACKEND", "redis")
		t.Setenv("REDIS_ADDR", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for CACHE_BACKEND=redis without REDIS_ADDR")
		}
	})

	t.Run("redis backend", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", " Redis ")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("REDIS_DB", "3")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.CacheBackend != CacheBackendRedis || cfg.RedisDB != 3 {
			t.Fatalf("unexpected redis config: backend=%s db=%d", cfg.CacheBackend, cfg.RedisDB)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "memcached")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown CACHE_BACKEND")
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "memory")
		t.Setenv("CACHE_TTL", "0s")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for CACHE_TTL=0s")
		}
	})
}

func TestLoad_SourceCircuitParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("custom values", func(t *testing.T) {
		t.Setenv("SOURCE_CIRCUIT_ENABLED", "false")
		t.Setenv("SOURCE_CIRCUIT_FAILURE_COUNT", "9")
		t.Setenv("SOURCE_CIRCUIT_OPEN_TIMEOUT", "1m")
		t.Setenv("SOURCE_CIRCUIT_HALF_OPEN_MAX_REQ", "2")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		got := cfg.SourceCircuit
		if got.Enabled || got.FailureThreshold != 9 || got.OpenTimeout != time.Minute || got.HalfOpenMaxReq != 2 {
			t.Fatalf("unexpected source circuit: %+v", got)
		}
	})

	t.Run("invalid failure count", func(t *testing.T) {
		t.Setenv("SOURCE_CIRCUIT_FAILURE_COUNT", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for SOURCE_CIRCUIT_FAILURE_COUNT=0")
		}
	})
}

func TestLoad_SchedulerValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("frequency workers must be positive", func(t *testing.T) {
		t.Setenv("FREQUENCY_WORKERS", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for FREQUENCY_WORKERS=0")
		}
	})

	t.Run("negative lookback", func(t *testing.T) {
		t.Setenv("FREQUENCY_WORKERS", "")
		t.Setenv("SUMMARY_LOOKBACK_DAYS", "-1")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for SUMMARY_LOOKBACK_DAYS=-1")
		}
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("SUMMARY_LOOKBACK_DAYS", "")
		t.Setenv("APP_TIMEZONE", "Mars/Olympus")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for unknown APP_TIMEZONE")
		}
	})
}

func TestLoad_FreeTextDefaultsModel(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("FREETEXT_ENABLED", "true")
	t.Setenv("OLLAMA_MODEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OllamaModel != "llama3" {
		t.Fatalf("expected default ollama model, got %q", cfg.OllamaModel)
	}
}

func TestLoad_SwaggerDefaultsByEnv(t *testing.T) {
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("SWAGGER_ENABLED", "")

	t.Run("prod disables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvProd)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=false in prod by default")
		}
	})

	t.Run("dev enables swagger by default", func(t *testing.T) {
		t.Setenv("APP_ENV", EnvDev)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=true in dev by default")
		}
	})
}
