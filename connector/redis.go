package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	metrics *connMetrics

	mu        sync.Mutex
	connected bool
	closed    bool
	healthy   atomic.Bool
}

// NewRedis 创建 Redis 连接器，客户端立即创建，Connect 时做 PING 校验
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	m, err := newConnMetrics(opt.meter, "redis", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create redis connector metrics")
	}

	c := &redisConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
		metrics: m,
	}
	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	if opt.tracer != nil {
		if err := redisotel.InstrumentTracing(c.client, redisotel.WithTracerProvider(opt.tracer)); err != nil {
			_ = c.client.Close()
			return nil, xerrors.Wrap(err, "instrument redis tracing")
		}
	}
	return c, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.connected {
		return nil
	}

	c.logger.Info("connecting to redis", clog.String("addr", c.cfg.Addr))
	err := c.client.Ping(ctx).Err()
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to redis", clog.Error(err), clog.String("addr", c.cfg.Addr))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "redis connector[%s]", c.cfg.Name)
	}

	c.connected = true
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)

	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "redis connector[%s]", c.cfg.Name)
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "redis connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *redisConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *redisConnector) Name() string {
	return c.cfg.Name
}

func (c *redisConnector) GetClient() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.client
}
