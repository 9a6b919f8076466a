package observability

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("failed to initialize stdouttrace exporter: %v", err)
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(nil) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter
func SetupPrometheusMetrics() *metric.MeterProvider {
	exp, err := otelprom.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	return metric.NewMeterProvider(metric.WithReader(exp))
}

// MetricsHandler exposes the /metrics endpoint handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ChatMetrics holds the companion-chat counters
type ChatMetrics struct {
	TurnsProcessed    prometheus.Counter
	CommandsHandled   *prometheus.CounterVec
	ImagesGenerated   *prometheus.CounterVec
	GeneratorFailures *prometheus.CounterVec
	OffersResolved    *prometheus.CounterVec
}

// NewChatMetrics registers and returns the chat counters
func NewChatMetrics() *ChatMetrics {
	return &ChatMetrics{
		TurnsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "companion_turns_processed_total",
			Help: "Number of user turns processed by the orchestrator",
		}),
		CommandsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_commands_handled_total",
			Help: "Number of slash commands handled, by command",
		}, []string{"command"}),
		ImagesGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_images_generated_total",
			Help: "Number of images generated, by variant (selfie, appearance, photoshoot)",
		}, []string{"variant"}),
		GeneratorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_generator_failures_total",
			Help: "Number of generator call failures, by generator kind",
		}, []string{"kind"}),
		OffersResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_offers_resolved_total",
			Help: "Number of selfie offers resolved, by outcome",
		}, []string{"outcome"}),
	}
}
