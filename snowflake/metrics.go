package snowflake

import (
	"context"
	"time"

	"github.com/ceyewan/bits/metrics"
	"github.com/ceyewan/bits/xerrors"
)

const (
	MetricGenerated       = "snowflake_ids_generated_total"
	MetricExhausted       = "snowflake_sequence_exhausted_total"
	MetricClockRegression = "snowflake_clock_regressions_total"
	MetricWaitDuration    = "snowflake_wait_duration_seconds"
)

var waitBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

type generatorMetrics struct {
	generated   metrics.Counter
	exhausted   metrics.Counter
	regressions metrics.Counter
	wait        metrics.Histogram
	labels      []metrics.Label
}

func newGeneratorMetrics(meter metrics.Meter, resolver string) (*generatorMetrics, error) {
	generated, err := meter.Counter(MetricGenerated, "Snowflake IDs generated")
	if err != nil {
		return nil, xerrors.Wrap(err, "create generated counter")
	}
	exhausted, err := meter.Counter(MetricExhausted, "Times the per-millisecond sequence ran out")
	if err != nil {
		return nil, xerrors.Wrap(err, "create exhausted counter")
	}
	regressions, err := meter.Counter(MetricClockRegression, "Clock regressions observed, by policy")
	if err != nil {
		return nil, xerrors.Wrap(err, "create regression counter")
	}
	wait, err := meter.Histogram(MetricWaitDuration, "Time spent waiting for the clock",
		metrics.WithUnit("s"), metrics.WithBuckets(waitBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create wait histogram")
	}
	return &generatorMetrics{
		generated:   generated,
		exhausted:   exhausted,
		regressions: regressions,
		wait:        wait,
		labels:      []metrics.Label{metrics.L("resolver", resolver)},
	}, nil
}

func (m *generatorMetrics) observeWait(ctx context.Context, reason string, d time.Duration) {
	m.wait.Record(ctx, d.Seconds(), append(m.labels, metrics.L("reason", reason))...)
}

func (m *generatorMetrics) regression(ctx context.Context, policy ClockPolicy) {
	m.regressions.Inc(ctx, append(m.labels, metrics.L("policy", string(policy)))...)
}
