// Package db 提供基于 GORM 的数据库组件，负责把 Snowflake ID 写入持久层。
//
// 在 SQLite 连接器的基础上提供：
//   - Snowflake 主键插件：创建记录时为零值主键（或 SnowflakeColumns 声明的列）分配 ID
//   - 事务管理
//   - 分库分表（gorm.io/sharding），分片表的主键同样来自 Snowflake 生成器
//   - 将 GORM 日志接入 clog，可选通过 otelgorm 接入链路追踪
//
// 基本使用：
//
//	conn, _ := connector.NewSQLite(&connector.SQLiteConfig{Path: "bits.db"})
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	gen, _ := snowflake.New(&snowflake.Config{DatacenterID: 1, WorkerID: 15})
//	database, _ := db.New(&db.Config{},
//		db.WithSQLiteConnector(conn),
//		db.WithGenerator(gen),
//		db.WithLogger(logger))
//
//	type Order struct {
//		db.Model
//		Amount int64
//	}
//	order := Order{Amount: 100}
//	_ = database.DB(ctx).Create(&order).Error // order.ID 已填充
//
// db 组件借用连接器的连接，不负责连接的生命周期。同一个连接器只应创建一个 DB。
package db

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/sharding"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/snowflake"
	"github.com/ceyewan/bits/xerrors"
)

// DB 数据库组件的核心能力
type DB interface {
	// DB 返回绑定 ctx 的 *gorm.DB，业务查询直接使用
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务，fn 中的 tx 仅在当前事务内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Close 连接由连接器管理，这里不关闭
	Close() error
}

type database struct {
	client *gorm.DB
	logger clog.Logger
}

// New 创建数据库组件，必须通过 WithSQLiteConnector 提供已连接的连接器
func New(cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{logger: clog.Discard()}
	for _, o := range opts {
		o(&opt)
	}

	if opt.sqliteConnector == nil || opt.sqliteConnector.GetClient() == nil {
		return nil, ErrSQLiteConnectorRequired
	}
	gormDB := opt.sqliteConnector.GetClient()

	if opt.generator != nil {
		if err := gormDB.Use(NewPlugin(opt.generator, opt.logger)); err != nil {
			return nil, xerrors.Wrap(err, "register snowflake plugin")
		}
	}

	if opt.tracer != nil {
		if err := gormDB.Use(otelgorm.NewPlugin(otelgorm.WithTracerProvider(opt.tracer))); err != nil {
			return nil, xerrors.Wrap(err, "register otelgorm plugin")
		}
	}

	if cfg.EnableSharding {
		for _, rule := range cfg.ShardingRules {
			if err := gormDB.Use(newSharding(rule, opt.generator, opt.logger)); err != nil {
				return nil, xerrors.Wrapf(err, "register sharding middleware for tables %v", rule.Tables)
			}
		}
	}

	opt.logger.Info("db component created",
		clog.String("driver", cfg.Driver),
		clog.Bool("snowflake", opt.generator != nil),
		clog.Bool("sharding", cfg.EnableSharding),
	)

	return &database{
		client: gormDB.Session(&gorm.Session{
			Logger: newGormLogger(opt.logger, opt.silentMode, cfg.SlowThreshold),
		}),
		logger: opt.logger,
	}, nil
}

// newSharding 有生成器时分片主键取自生成器，否则使用 sharding 内置的雪花算法
func newSharding(rule ShardingRule, gen *snowflake.Generator, logger clog.Logger) *sharding.Sharding {
	tables := make([]interface{}, len(rule.Tables))
	for i, v := range rule.Tables {
		tables[i] = v
	}

	cfg := sharding.Config{
		ShardingKey:         rule.ShardingKey,
		NumberOfShards:      rule.NumberOfShards,
		PrimaryKeyGenerator: sharding.PKSnowflake,
	}
	if gen != nil {
		cfg.PrimaryKeyGenerator = sharding.PKCustom
		cfg.PrimaryKeyGeneratorFn = shardingKeyFn(gen, logger, shardingKeyTimeout)
	}
	return sharding.Register(cfg, tables...)
}

// shardingKeyTimeout 分片主键生成的总时限，覆盖时钟回拨等可重试错误
const shardingKeyTimeout = time.Second

// shardingKeyFn gorm.io/sharding 的主键回调无法返回错误：在 timeout 内重试 Make，
// 仍然失败时记录错误并返回 0。0 不是合法的 Snowflake 主键，重复插入会被唯一约束拒绝。
func shardingKeyFn(gen *snowflake.Generator, logger clog.Logger, timeout time.Duration) func(int64) int64 {
	return func(int64) int64 {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var lastErr error
		for attempt := 1; ; attempt++ {
			id, err := gen.Make(ctx)
			if err == nil {
				return id.Int64()
			}
			lastErr = err

			select {
			case <-ctx.Done():
				logger.Error("generate sharding primary key failed",
					clog.Int("attempts", attempt),
					clog.Error(lastErr),
				)
				return 0
			case <-time.After(time.Millisecond):
			}
		}
	}
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) Close() error {
	return nil
}
