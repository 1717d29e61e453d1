package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

type sqliteConnector struct {
	cfg     *SQLiteConfig
	logger  clog.Logger
	metrics *connMetrics

	mu      sync.RWMutex
	db      *gorm.DB
	healthy atomic.Bool
}

// NewSQLite 创建 SQLite 连接器，实际连接在 Connect 时建立
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opt := applyOptions(opts...)

	m, err := newConnMetrics(opt.meter, "sqlite", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create sqlite connector metrics")
	}

	return &sqliteConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
		metrics: m,
	}, nil
}

func (c *sqliteConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("opening sqlite", clog.String("path", c.cfg.Path))

	db, err := gorm.Open(sqlite.Open(c.cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err == nil {
		err = pingGorm(ctx, db)
	}
	c.metrics.connect(ctx, err)
	if err != nil {
		c.logger.Error("failed to open sqlite", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "sqlite connector[%s]", c.cfg.Name)
	}

	c.db = db
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	c.logger.Info("sqlite opened", clog.String("path", c.cfg.Path))
	return nil
}

func pingGorm(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *sqliteConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}
	c.metrics.setHealthy(context.Background(), false)

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close sqlite", clog.Error(err))
		return err
	}
	c.logger.Info("sqlite closed")
	return nil
}

func (c *sqliteConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "sqlite connector[%s]", c.cfg.Name)
	}
	if err := pingGorm(ctx, db); err != nil {
		c.healthy.Store(false)
		c.metrics.setHealthy(ctx, false)
		c.logger.Warn("sqlite health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "sqlite connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	c.metrics.setHealthy(ctx, true)
	return nil
}

func (c *sqliteConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *sqliteConnector) Name() string {
	return c.cfg.Name
}

func (c *sqliteConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
