package snowflake

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/connector"
	"github.com/ceyewan/bits/metrics"
)

// Option Generator 选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	clock    Clock
	resolver SequenceResolver
	redis    connector.RedisConnector
	etcd     connector.EtcdConnector
	tracer   trace.TracerProvider
}

// WithLogger 注入日志记录器，自动追加 "snowflake" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("snowflake")
		}
	}
}

// WithMeter 注入指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracerProvider 为非内存解析器的调用创建 span，默认使用全局 Provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp
		}
	}
}

// WithClock 替换时钟，默认 SystemClock
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithResolver 直接指定解析器，优先于 Config.Resolver
func WithResolver(resolver SequenceResolver) Option {
	return func(o *options) {
		o.resolver = resolver
	}
}

// WithRedis Config.Resolver 为 "redis" 时使用的连接器，Generator 只借用不关闭
func WithRedis(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redis = conn
	}
}

// WithEtcd Config.Resolver 为 "etcd" 时使用的连接器，Generator 只借用不关闭
func WithEtcd(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcd = conn
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		clock:  SystemClock{},
		tracer: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
