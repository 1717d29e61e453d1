// Package clog 为 bits 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 层级命名空间，组件通过 WithNamespace 派生子 Logger
//   - Context 字段提取
//   - 运行时调整日志级别
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}, clog.WithNamespace("bits"))
//	logger.Info("generator created", clog.Int64("worker_id", 15))
//
// 组件未注入 Logger 时应使用 clog.Discard()。
package clog

import "context"

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// 带 Context 的版本会按 WithContextField 的规则提取字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	//   logger.WithNamespace("snowflake") // bits -> bits.snowflake
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对同一 New 派生出的所有 Logger 生效
	SetLevel(level Level) error

	// Flush 强制同步所有缓冲区的日志
	Flush()
}
