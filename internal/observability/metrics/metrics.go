package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

const (
	KindFormula  = "formula"
	KindRelation = "relation"

	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

// Metrics exposes CRM instruments both to the OTLP pipeline and to the
// Prometheus registry served on /metrics.
type Metrics struct {
	computedFailures metric.Int64Counter
	eventsEmitted    metric.Int64Counter
	dispatch         metric.Int64Counter
	configCache      metric.Int64Counter

	promComputedFailures *prometheus.CounterVec
	promEventsEmitted    *prometheus.CounterVec
	promDispatch         *prometheus.CounterVec
	promConfigCache      *prometheus.CounterVec
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain instruments on the default Prometheus registry.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	return NewWithRegisterer(cfg, provider, prometheus.DefaultRegisterer)
}

func NewWithRegisterer(cfg Config, provider metric.MeterProvider, registerer prometheus.Registerer) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "imobi360"
	}
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(name)

	computedFailures, err := meter.Int64Counter("crm_computed_field_failures_total")
	if err != nil {
		return nil, err
	}
	eventsEmitted, err := meter.Int64Counter("crm_events_emitted_total")
	if err != nil {
		return nil, err
	}
	dispatch, err := meter.Int64Counter("crm_automation_dispatch_total")
	if err != nil {
		return nil, err
	}
	configCache, err := meter.Int64Counter("crm_tenant_config_cache_total")
	if err != nil {
		return nil, err
	}

	constLabels := prometheus.Labels{"service": name}
	m := &Metrics{
		computedFailures: computedFailures,
		eventsEmitted:    eventsEmitted,
		dispatch:         dispatch,
		configCache:      configCache,
		promComputedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_computed_field_failures_total",
			Help:        "Computed field resolutions that degraded to null, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		promEventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_events_emitted_total",
			Help:        "Domain events appended to the event log.",
			ConstLabels: constLabels,
		}, []string{"event_type", "result"}),
		promDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_automation_dispatch_total",
			Help:        "Automation webhook deliveries by outcome.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		promConfigCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_tenant_config_cache_total",
			Help:        "Tenant config cache lookups.",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}

	if registerer != nil {
		var err error
		for _, vec := range []**prometheus.CounterVec{&m.promComputedFailures, &m.promEventsEmitted, &m.promDispatch, &m.promConfigCache} {
			if *vec, err = registerCounterVec(registerer, *vec); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// RecordComputedFieldFailure counts a formula or relation field that resolved to null on error.
func (m *Metrics) RecordComputedFieldFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	kind = strings.TrimSpace(kind)
	attrs := FilterAttributes(attribute.String("kind", kind))
	m.computedFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.promComputedFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordEventEmitted(ctx context.Context, eventType, result string) {
	if m == nil {
		return
	}
	eventType, result = strings.TrimSpace(eventType), strings.TrimSpace(result)
	attrs := FilterAttributes(
		attribute.String("event_type", eventType),
		attribute.String("result", result),
	)
	m.eventsEmitted.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.promEventsEmitted.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) RecordDispatch(ctx context.Context, result string) {
	if m == nil {
		return
	}
	result = strings.TrimSpace(result)
	m.dispatch.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", result))...))
	m.promDispatch.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordConfigCache(ctx context.Context, result string) {
	if m == nil {
		return
	}
	result = strings.TrimSpace(result)
	m.configCache.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("result", result))...))
	m.promConfigCache.WithLabelValues(result).Inc()
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// registerCounterVec registers vec, reusing an identical collector that is
// already registered.
func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":        {},
	"event_type":  {},
	"result":      {},
	"entity_type": {},
	"route":       {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
