// Package metrics 为 bits 提供统一的指标收集能力。
//
// 基于 OpenTelemetry 构建，通过 Prometheus exporter 暴露，提供 Counter、Gauge、Histogram 三种指标。
// 组件未注入 Meter 时使用 metrics.Discard()，所有操作都是空操作。
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "bits",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("snowflake_ids_generated_total", "生成的 ID 总数")
//	counter.Inc(ctx, metrics.L("resolver", "memory"))
package metrics

import (
	"context"
	"net/http"
)

// Counter 只增不减的累计值
type Counter interface {
	Inc(ctx context.Context, labels ...Label)
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 记录值的分布，例如等待耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂。通过 Meter 创建的指标可在多个 goroutine 中并发使用
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回 Prometheus 抓取端点，禁用时返回 404
	Handler() http.Handler

	// Shutdown 关闭 Meter 并停止 HTTP 服务，通常在进程退出时调用
	Shutdown(ctx context.Context) error
}

// MetricOption 创建指标时的额外配置
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	Unit    string
	Buckets []float64
}

// WithUnit 设置指标单位，例如 "s"、"By"
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图的桶边界，仅对 Histogram 生效
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
