// Package trace 初始化 OpenTelemetry 链路追踪。
//
// Init 设置全局 TracerProvider 和 Propagator，组件通过 WithTracerProvider 选项接入：
//
//	shutdown, err := trace.Init(&cfg.Trace)
//	if err != nil {
//		return err
//	}
//	defer shutdown(ctx)
//
//	gen, _ := snowflake.New(&cfg.Snowflake, snowflake.WithTracerProvider(otel.GetTracerProvider()))
package trace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"

	"github.com/ceyewan/bits/xerrors"
)

// Init 创建连接到 Endpoint 的 TracerProvider 并设为全局，返回的函数用于退出时刷新数据
//
// cfg.Enabled 为 false 时等同于 Discard。
func Init(cfg *Config) (func(context.Context) error, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return Discard(cfg.ServiceName)
	}

	ctx := context.Background()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(5 * time.Second),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create otlp exporter")
	}

	res, err := newResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Sampler))),
	}
	if cfg.Batcher == "simple" {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
	} else {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	setGlobal(tp)
	return tp.Shutdown, nil
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	var opts []resource.Option
	if serviceName != "" {
		opts = append(opts, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create resource")
	}
	return res, nil
}

// setGlobal TraceContext 走 W3C traceparent，Baggage 透传自定义 KV
func setGlobal(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "config is required")
	}
	if !cfg.Enabled {
		return nil
	}
	if cfg.ServiceName == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "service_name is required")
	}
	if cfg.Endpoint == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "endpoint is required")
	}
	if cfg.Sampler < 0 || cfg.Sampler > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "sampler must be between 0 and 1, got %v", cfg.Sampler)
	}
	if cfg.Batcher != "" && cfg.Batcher != "batch" && cfg.Batcher != "simple" {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "batcher must be \"batch\" or \"simple\", got %q", cfg.Batcher)
	}
	return nil
}
