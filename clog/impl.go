package clog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// loggerImpl 是 Logger 接口的 slog 实现
type loggerImpl struct {
	handler   *clogHandler
	options   *options
	baseAttrs []slog.Attr
}

func newLogger(config *Config, o *options) (Logger, error) {
	handler, err := newHandler(config, o)
	if err != nil {
		return nil, err
	}
	return &loggerImpl{handler: handler, options: o}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) Fatal(msg string, fields ...Field) {
	l.log(context.Background(), FatalLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) FatalContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, FatalLevel, msg, fields)
}

// With 派生子 Logger，复制 baseAttrs 避免兄弟 Logger 之间共享底层数组
func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields))
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	return &loggerImpl{handler: l.handler, options: l.options, baseAttrs: attrs}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	o := *l.options
	o.namespaceParts = append(append([]string(nil), l.options.namespaceParts...), parts...)
	return &loggerImpl{handler: l.handler, options: &o, baseAttrs: l.baseAttrs}
}

func (l *loggerImpl) SetLevel(level Level) error {
	l.handler.setLevel(level)
	return nil
}

// Flush slog 的内置 handler 是同步写入的，无需刷新
func (l *loggerImpl) Flush() {}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	slogLevel := level.slogLevel()
	if !l.handler.Enabled(ctx, slogLevel) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields)+2)
	if ns, ok := namespaceAttr(l.options); ok {
		attrs = append(attrs, ns)
	}
	attrs = append(attrs, l.baseAttrs...)
	for _, f := range fields {
		if f.Equal(slog.Attr{}) {
			continue
		}
		attrs = append(attrs, f)
	}
	attrs = extractContextFields(ctx, l.options, attrs)

	// skip: runtime.Callers, log, Info/Error 等
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), slogLevel, msg, pcs[0])
	record.AddAttrs(attrs...)

	_ = l.handler.Handle(ctx, record)

	if level == FatalLevel {
		os.Exit(1)
	}
}
