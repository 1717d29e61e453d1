// Package config 为 bits 提供统一的配置加载能力，基于 Viper 实现。
//
// 特性：
//   - 多源配置：YAML/JSON 文件、.env 文件、环境变量、代码内默认值
//   - 优先级：环境变量 > .env > 环境特定配置 > 基础配置 > Defaults
//   - 热更新：监听配置文件变化并按 key 通知
//
// 基本使用：
//
//	loader, err := config.New(&config.Config{
//		Name:      "bits",
//		EnvPrefix: "BITS",
//		Defaults:  map[string]any{"snowflake.epoch": "2023-01-01T00:00:00Z"},
//	})
//	if err != nil {
//		return err
//	}
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg snowflake.Config
//	_ = loader.UnmarshalKey("snowflake", &cfg)
package config

import (
	"context"
	"time"
)

// Loader 配置加载器：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置，找到配置文件时自动开始监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error

	// ConfigFileUsed 返回实际加载的配置文件路径，未找到时为空
	ConfigFileUsed() string
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
