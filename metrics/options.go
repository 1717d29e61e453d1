package metrics

import "github.com/ceyewan/bits/clog"

// Option 配置 Meter 实例的选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 注入日志记录器，自动追加 "metrics" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
