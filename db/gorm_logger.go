package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/logger"

	"github.com/ceyewan/bits/clog"
)

// gormLogger 将 GORM 日志转到 clog
type gormLogger struct {
	logger clog.Logger
	level  logger.LogLevel
	slow   time.Duration
}

func newGormLogger(log clog.Logger, silent bool, slow time.Duration) logger.Interface {
	level := logger.Info
	if silent {
		level = logger.Silent
	}
	return &gormLogger{logger: log, level: level, slow: slow}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace 错误记 Error，慢查询记 Warn，其余记 Debug
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []clog.Field{
		clog.Duration("duration", elapsed),
		clog.String("sql", sql),
		clog.Int64("rows", rows),
	}

	switch {
	case err != nil && l.level >= logger.Error:
		l.logger.ErrorContext(ctx, "sql error", append(fields, clog.Error(err))...)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		l.logger.WarnContext(ctx, "slow sql", fields...)
	case l.level >= logger.Info:
		l.logger.DebugContext(ctx, "sql", fields...)
	}
}
