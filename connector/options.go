package connector

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/metrics"
)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	tracer trace.TracerProvider
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器，自动追加 "connector" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithTracerProvider 为客户端命令创建 span：Redis 通过 redisotel，Etcd 通过 gRPC stats handler
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}
