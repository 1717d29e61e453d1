package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
}

func TestNewDisabled(t *testing.T) {
	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestCounterExported(t *testing.T) {
	logger := clog.Discard()
	m, err := New(NewDevDefaultConfig("bits-test"), WithLogger(logger))
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(context.Background()) }()

	ctx := context.Background()
	counter, err := m.Counter("test_ids_total", "generated ids")
	require.NoError(t, err)
	counter.Inc(ctx, L("resolver", "memory"))
	counter.Add(ctx, 2, L("resolver", "memory"))

	body := scrape(t, m)
	assert.Contains(t, body, "test_ids_total")
	assert.Contains(t, body, `resolver="memory"`)
	assert.Contains(t, body, "} 3")
}

func TestHistogramAndGauge(t *testing.T) {
	m, err := New(NewDevDefaultConfig("bits-test"))
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(context.Background()) }()

	ctx := context.Background()
	h, err := m.Histogram("test_wait_seconds", "wait", WithUnit("s"), WithBuckets([]float64{0.001, 0.01}))
	require.NoError(t, err)
	h.Record(ctx, 0.005)

	g, err := m.Gauge("test_in_flight", "in flight")
	require.NoError(t, err)
	g.Inc(ctx)
	g.Inc(ctx)
	g.Dec(ctx)

	body := scrape(t, m)
	assert.Contains(t, body, "test_wait_seconds_bucket")
	assert.Contains(t, body, `le="0.01"`)
	assert.Contains(t, body, "test_in_flight")
}

func TestSeparateRegistries(t *testing.T) {
	a, err := New(NewDevDefaultConfig("a"))
	require.NoError(t, err)
	defer func() { _ = a.Shutdown(context.Background()) }()
	b, err := New(NewDevDefaultConfig("b"))
	require.NoError(t, err)
	defer func() { _ = b.Shutdown(context.Background()) }()

	c, err := a.Counter("only_in_a_total", "a")
	require.NoError(t, err)
	c.Inc(context.Background())

	assert.Contains(t, scrape(t, a), "only_in_a_total")
	assert.NotContains(t, scrape(t, b), "only_in_a_total")
}

func TestDiscard(t *testing.T) {
	m := Discard()
	ctx := context.Background()

	c, err := m.Counter("x", "x")
	require.NoError(t, err)
	c.Inc(ctx)
	g, err := m.Gauge("x", "x")
	require.NoError(t, err)
	g.Set(ctx, 1)
	h, err := m.Histogram("x", "x")
	require.NoError(t, err)
	h.Record(ctx, 1)

	assert.NoError(t, m.Shutdown(ctx))
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
}
