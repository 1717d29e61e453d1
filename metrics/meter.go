package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

const instrumentationName = "github.com/ceyewan/bits"

// New 创建 Meter 实例，cfg.Enabled 为 false 时返回 noop Meter
//
// 每个 Meter 使用独立的 Prometheus Registry，多次调用 New 不会发生重复注册
func New(cfg *Config, opts ...Option) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(xerrors.ErrInvalidInput, "METRICS_CONFIG_REQUIRED")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}
	o := applyOptions(opts...)

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create resource")
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, xerrors.Wrap(err, "create prometheus exporter")
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	if cfg.Runtime {
		if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
			_ = mp.Shutdown(context.Background())
			return nil, xerrors.Wrap(err, "start runtime instrumentation")
		}
	}

	m := &meterImpl{
		meter:    mp.Meter(instrumentationName),
		provider: mp,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		logger:   o.logger,
	}

	if cfg.Port > 0 {
		path := cfg.Path
		if path == "" {
			path = "/metrics"
		}
		m.serve(fmt.Sprintf(":%d", cfg.Port), path)
	}

	return m, nil
}

// Must 类似 New，但出错时 panic，仅用于初始化阶段
func Must(cfg *Config, opts ...Option) Meter {
	m, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("metrics: %v", err))
	}
	return m
}

type meterImpl struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	server   *http.Server
	logger   clog.Logger
}

func (m *meterImpl) serve(addr, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m.handler)
	m.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		m.logger.Info("metrics server started", clog.String("addr", addr), clog.String("path", path))
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server stopped", clog.Error(err))
		}
	}()
}

func (m *meterImpl) Counter(name string, desc string, opts ...MetricOption) (Counter, error) {
	o := applyMetricOptions(opts)
	counterOpts := []metric.Float64CounterOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		counterOpts = append(counterOpts, metric.WithUnit(o.Unit))
	}
	c, err := m.meter.Float64Counter(name, counterOpts...)
	if err != nil {
		return nil, err
	}
	return &counterImpl{c: c}, nil
}

func (m *meterImpl) Gauge(name string, desc string, opts ...MetricOption) (Gauge, error) {
	o := applyMetricOptions(opts)
	gaugeOpts := []metric.Float64GaugeOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		gaugeOpts = append(gaugeOpts, metric.WithUnit(o.Unit))
	}
	g, err := m.meter.Float64Gauge(name, gaugeOpts...)
	if err != nil {
		return nil, err
	}
	return &gaugeImpl{g: g, values: make(map[string]float64)}, nil
}

func (m *meterImpl) Histogram(name string, desc string, opts ...MetricOption) (Histogram, error) {
	o := applyMetricOptions(opts)
	histOpts := []metric.Float64HistogramOption{metric.WithDescription(desc)}
	if o.Unit != "" {
		histOpts = append(histOpts, metric.WithUnit(o.Unit))
	}
	if len(o.Buckets) > 0 {
		histOpts = append(histOpts, metric.WithExplicitBucketBoundaries(o.Buckets...))
	}
	h, err := m.meter.Float64Histogram(name, histOpts...)
	if err != nil {
		return nil, err
	}
	return &histogramImpl{h: h}, nil
}

func (m *meterImpl) Handler() http.Handler {
	return m.handler
}

func (m *meterImpl) Shutdown(ctx context.Context) error {
	var errs []error
	if m.server != nil {
		errs = append(errs, m.server.Shutdown(ctx))
	}
	errs = append(errs, m.provider.Shutdown(ctx))
	return xerrors.Combine(errs...)
}

type counterImpl struct {
	c metric.Float64Counter
}

func (c *counterImpl) Inc(ctx context.Context, labels ...Label) {
	c.c.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

func (c *counterImpl) Add(ctx context.Context, val float64, labels ...Label) {
	c.c.Add(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

// gaugeImpl 在本地维护当前值以支持 Inc/Dec
type gaugeImpl struct {
	g      metric.Float64Gauge
	mu     sync.Mutex
	values map[string]float64
}

func (g *gaugeImpl) Set(ctx context.Context, val float64, labels ...Label) {
	g.mu.Lock()
	g.values[labelKey(labels)] = val
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

func (g *gaugeImpl) Inc(ctx context.Context, labels ...Label) {
	g.delta(ctx, 1, labels)
}

func (g *gaugeImpl) Dec(ctx context.Context, labels ...Label) {
	g.delta(ctx, -1, labels)
}

func (g *gaugeImpl) delta(ctx context.Context, d float64, labels []Label) {
	key := labelKey(labels)
	g.mu.Lock()
	g.values[key] += d
	val := g.values[key]
	g.mu.Unlock()
	g.g.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

type histogramImpl struct {
	h metric.Float64Histogram
}

func (h *histogramImpl) Record(ctx context.Context, val float64, labels ...Label) {
	h.h.Record(ctx, val, metric.WithAttributes(toAttributes(labels)...))
}

func toAttributes(labels []Label) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		attrs[i] = attribute.String(l.Key, l.Value)
	}
	return attrs
}

func labelKey(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	return strings.Join(parts, "|")
}
