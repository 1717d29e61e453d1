package metrics

import (
	"context"
	"net/http"
)

// Discard 返回 noop Meter，所有指标操作都是空操作
func Discard() Meter {
	return noopMeter{}
}

type noopMeter struct{}

func (noopMeter) Counter(string, string, ...MetricOption) (Counter, error) {
	return noopCounter{}, nil
}

func (noopMeter) Gauge(string, string, ...MetricOption) (Gauge, error) {
	return noopGauge{}, nil
}

func (noopMeter) Histogram(string, string, ...MetricOption) (Histogram, error) {
	return noopHistogram{}, nil
}

func (noopMeter) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (noopMeter) Shutdown(context.Context) error {
	return nil
}

type noopCounter struct{}

func (noopCounter) Inc(context.Context, ...Label)          {}
func (noopCounter) Add(context.Context, float64, ...Label) {}

type noopGauge struct{}

func (noopGauge) Set(context.Context, float64, ...Label) {}
func (noopGauge) Inc(context.Context, ...Label)          {}
func (noopGauge) Dec(context.Context, ...Label)          {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...Label) {}
