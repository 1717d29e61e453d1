package connector

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

// healthCheckKey 探测用的 key，不要求存在
const healthCheckKey = "bits/health-check"

type etcdConnector struct {
	cfg     *EtcdConfig
	logger  clog.Logger
	metrics *connMetrics
	tracer  trace.TracerProvider

	mu      sync.RWMutex
	client  *clientv3.Client
	closed  bool
	healthy atomic.Bool
}

// NewEtcd 创建 Etcd 连接器，客户端在 Connect 时创建
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	m, err := newConnMetrics(opt.meter, "etcd", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create etcd connector metrics")
	}

	return &etcdConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		metrics: m,
		tracer:  opt.tracer,
	}, nil
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.client != nil {
		return nil
	}

	c.logger.Info("connecting to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            c.cfg.Endpoints,
		Username:             c.cfg.Username,
		Password:             c.cfg.Password,
		DialTimeout:          c.cfg.DialTimeout,
		DialKeepAliveTime:    c.cfg.KeepAliveTime,
		DialKeepAliveTimeout: c.cfg.KeepAliveTimeout,
		DialOptions:          c.dialOptions(),
	})
	if err == nil {
		err = c.probe(ctx, client)
		if err != nil {
			_ = client.Close()
		}
	}
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "etcd connector[%s]", c.cfg.Name)
	}

	c.client = client
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) dialOptions() []grpc.DialOption {
	if c.tracer == nil {
		return nil
	}
	return []grpc.DialOption{
		grpc.WithStatsHandler(otelgrpc.NewClientHandler(otelgrpc.WithTracerProvider(c.tracer))),
	}
}

func (c *etcdConnector) probe(ctx context.Context, client *clientv3.Client) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	_, err := client.Get(probeCtx, healthCheckKey, clientv3.WithCountOnly())
	return err
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)
	c.metrics.setHealthy(context.Background(), false)

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s]", c.cfg.Name)
	}
	if err := c.probe(ctx, client); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "etcd connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *etcdConnector) Name() string {
	return c.cfg.Name
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
