package connector

import (
	"context"

	"github.com/ceyewan/bits/metrics"
)

const (
	MetricConnectTotal = "connector_connect_total"
	MetricHealthy      = "connector_healthy"
)

// connMetrics 连接器共用的指标：连接尝试次数和健康状态
type connMetrics struct {
	connects metrics.Counter
	healthy  metrics.Gauge
	labels   []metrics.Label
}

func newConnMetrics(meter metrics.Meter, kind, name string) (*connMetrics, error) {
	connects, err := meter.Counter(MetricConnectTotal, "Connection attempts by connector and outcome")
	if err != nil {
		return nil, err
	}
	healthy, err := meter.Gauge(MetricHealthy, "1 when the last health check succeeded")
	if err != nil {
		return nil, err
	}
	return &connMetrics{
		connects: connects,
		healthy:  healthy,
		labels:   []metrics.Label{metrics.L("connector", kind), metrics.L("name", name)},
	}, nil
}

func (m *connMetrics) connect(ctx context.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.connects.Inc(ctx, append(m.labels, metrics.L("outcome", outcome))...)
}

func (m *connMetrics) setHealthy(ctx context.Context, ok bool) {
	val := 0.0
	if ok {
		val = 1
	}
	m.healthy.Set(ctx, val, m.labels...)
}
