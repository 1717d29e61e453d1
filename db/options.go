package db

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/connector"
	"github.com/ceyewan/bits/snowflake"
)

// Option 配置 DB 实例的选项
type Option func(*options)

type options struct {
	logger          clog.Logger
	sqliteConnector connector.SQLiteConnector
	generator       *snowflake.Generator
	tracer          trace.TracerProvider
	silentMode      bool // 静默模式，禁用 SQL 日志输出
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithSQLiteConnector 注入 SQLite 连接器
func WithSQLiteConnector(conn connector.SQLiteConnector) Option {
	return func(o *options) {
		o.sqliteConnector = conn
	}
}

// WithGenerator 注入 Snowflake 生成器，创建记录时为零值主键分配 ID
func WithGenerator(gen *snowflake.Generator) Option {
	return func(o *options) {
		o.generator = gen
	}
}

// WithTracerProvider 通过 otelgorm 为每条 SQL 创建 span
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

// WithSilentMode 禁用 SQL 日志输出
func WithSilentMode() Option {
	return func(o *options) {
		o.silentMode = true
	}
}
