package clog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/ceyewan/bits/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

func String(k, v string) Field {
	return slog.String(k, v)
}

func Int(k string, v int) Field {
	return slog.Int(k, v)
}

func Int64(k string, v int64) Field {
	return slog.Int64(k, v)
}

func Uint64(k string, v uint64) Field {
	return slog.Uint64(k, v)
}

func Float64(k string, v float64) Field {
	return slog.Float64(k, v)
}

func Bool(k string, v bool) Field {
	return slog.Bool(k, v)
}

func Time(k string, v time.Time) Field {
	return slog.Time(k, v)
}

func Duration(k string, v time.Duration) Field {
	return slog.Duration(k, v)
}

func Any(k string, v any) Field {
	return slog.Any(k, v)
}

// Error 只输出错误消息：err_msg="..."
//
// 如果错误链中带有 xerrors 错误码，会一并输出 err_code。
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	if code := xerrors.GetCode(err); code != "" {
		return slog.Group("", slog.String("err_msg", err.Error()), slog.String("err_code", code))
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 显式指定错误码，产生嵌套结构 error={msg=..., code=...}
func ErrorWithCode(err error, code string) Field {
	if err == nil {
		return slog.Group("error", slog.String("code", code))
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}

// ErrorWithStack 包含错误消息、类型和调用栈，生产环境谨慎使用
func ErrorWithStack(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	attrs := []any{
		slog.String("msg", err.Error()),
		slog.String("type", fmt.Sprintf("%T", err)),
	}
	if stack := stackTrace(3); stack != "" {
		attrs = append(attrs, slog.String("stack", stack))
	}
	return slog.Group("error", attrs...)
}

func stackTrace(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}
