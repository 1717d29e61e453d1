package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/ceyewan/bits/clog"
)

// Config 加载器配置
type Config struct {
	Name      string         // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string       // 搜索路径，默认 [".", "./config"]
	FileType  string         // 文件类型，默认 "yaml"
	EnvPrefix string         // 环境变量前缀，默认 "BITS"
	Defaults  map[string]any // 默认值，key 使用点号分隔，例如 "snowflake.worker_id"
}

func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "BITS"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	if strings.ContainsAny(c.Name, `/\`) {
		return fmt.Errorf("config name must not contain path separators: %s", c.Name)
	}
	return nil
}

// Option 加载器选项
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 注入日志记录器，自动追加 "config" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}

// New 创建加载器，cfg 为 nil 时使用全部默认值
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, WrapValidationError(err)
	}

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return newLoader(cfg, o), nil
}

// MustLoad 创建并加载配置，出错时 panic，仅用于初始化阶段
func MustLoad(cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	if err := l.Load(context.Background()); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return l
}
