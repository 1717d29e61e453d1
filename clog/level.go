package clog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，按严重程度递增：Debug < Info < Warn < Error < Fatal
type Level int

const (
	DebugLevel Level = iota - 4
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String 返回小写的级别名称
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", l)
	}
}

// slogLevel 映射为 slog.Level，Fatal 取 Error+4
func (l Level) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ParseLevel 将字符串（不区分大小写）解析为 Level，无法解析时返回 InfoLevel 和错误
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %s", s)
	}
}
