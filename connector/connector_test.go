package connector

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

func TestRedisConfigValidate(t *testing.T) {
	var nilCfg *RedisConfig
	assert.ErrorIs(t, nilCfg.validate(), ErrConfig)

	cfg := &RedisConfig{}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = &RedisConfig{Addr: "127.0.0.1:6379", DB: -1}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = &RedisConfig{Addr: "127.0.0.1:6379"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 10, cfg.PoolSize)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestEtcdConfigValidate(t *testing.T) {
	cfg := &EtcdConfig{}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = &EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 10*time.Second, cfg.KeepAliveTime)
}

func TestSQLiteConfigValidate(t *testing.T) {
	cfg := &SQLiteConfig{}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = &SQLiteConfig{Path: ":memory:"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "sqlite", cfg.Name)
}

func TestSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := NewSQLite(&SQLiteConfig{Path: filepath.Join(t.TempDir(), "bits.db")}, WithLogger(clog.Discard()))
	require.NoError(t, err)

	assert.False(t, conn.IsHealthy())
	assert.Nil(t, conn.GetClient())
	assert.True(t, xerrors.Is(conn.HealthCheck(ctx), ErrClientNil))

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx), "connect is idempotent")
	assert.True(t, conn.IsHealthy())

	db := conn.GetClient()
	require.NotNil(t, db)
	require.NoError(t, db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO items (id, name) VALUES (?, ?)", 42, "x").Error)

	var name string
	require.NoError(t, db.Raw("SELECT name FROM items WHERE id = ?", 42).Scan(&name).Error)
	assert.Equal(t, "x", name)

	require.NoError(t, conn.HealthCheck(ctx))
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsHealthy())
	assert.Nil(t, conn.GetClient())
}

func TestRedisConnectFailure(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{
		Name:        "unreachable",
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConnection))
	assert.False(t, conn.IsHealthy())
	assert.Equal(t, "unreachable", conn.Name())
}

func TestRedisTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond},
		WithTracerProvider(tp))
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// 连接失败的 PING 同样会产生 span
	require.Error(t, conn.Connect(context.Background()))
	assert.NotEmpty(t, recorder.Ended())
}

func TestEtcdDialOptions(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}})
	require.NoError(t, err)
	assert.Empty(t, conn.(*etcdConnector).dialOptions())

	conn, err = NewEtcd(&EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}, WithTracerProvider(sdktrace.NewTracerProvider()))
	require.NoError(t, err)
	assert.Len(t, conn.(*etcdConnector).dialOptions(), 1)
}

func TestRedisClosed(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:6379"})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
	assert.ErrorIs(t, conn.Connect(context.Background()), ErrAlreadyClosed)
	assert.ErrorIs(t, conn.HealthCheck(context.Background()), ErrClientNil)
}

func TestEtcdBeforeConnect(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}})
	require.NoError(t, err)

	assert.Nil(t, conn.GetClient())
	assert.ErrorIs(t, conn.HealthCheck(context.Background()), ErrClientNil)
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(context.Background()), ErrAlreadyClosed)
}
