package observability

import (
	"context"
	"strings"

	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/kqsx/internal/config"
	"github.com/riskibarqy/kqsx/internal/platform/logging"
)

// Component names the binary exporting telemetry. Traces and profiles from
// the API and the range runner share a service name and differ by component.
type Component string

const (
	ComponentAPI         Component = "api"
	ComponentScrapeRange Component = "scrape-range"
)

const serviceNamespace = "kqsx"

func noopShutdown(context.Context) error { return nil }

// InitUptrace installs the global tracer provider. The returned func flushes
// pending spans and must run before the process exits.
func InitUptrace(cfg config.Config, component Component, logger *logging.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", string(component))

	switch {
	case !cfg.UptraceEnabled:
		logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return noopShutdown, nil
	case strings.TrimSpace(cfg.UptraceDSN) == "":
		logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return noopShutdown, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(resourceAttributes(cfg, component)...),
	)

	logger.Info("uptrace enabled",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
	)
	return uptrace.Shutdown, nil
}

func resourceAttributes(cfg config.Config, component Component) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.namespace", serviceNamespace),
		attribute.String("kqsx.component", string(component)),
	}
	if cfg.Location != nil {
		attrs = append(attrs, attribute.String("kqsx.timezone", cfg.Location.String()))
	}
	return attrs
}
