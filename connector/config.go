package connector

import (
	"fmt"
	"time"

	"github.com/ceyewan/bits/xerrors"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Name     string `mapstructure:"name"`     // 连接器名称 (默认: "default")
	Addr     string `mapstructure:"addr"`     // [必填] 如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 0)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	c.setDefaults()
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrap(ErrConfig, fmt.Sprintf("redis db must be >= 0, got %d", c.DB))
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	Name      string   `mapstructure:"name"`      // 连接器名称 (默认: "default")
	Endpoints []string `mapstructure:"endpoints"` // [必填] 连接地址列表
	Username  string   `mapstructure:"username"`  // [可选] 认证用户
	Password  string   `mapstructure:"password"`  // [可选] 认证密码

	DialTimeout      time.Duration `mapstructure:"dial_timeout"`       // 连接超时 (默认: 5s)
	KeepAliveTime    time.Duration `mapstructure:"keep_alive_time"`    // 心跳间隔 (默认: 10s)
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout"` // 心跳超时 (默认: 3s)
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.KeepAliveTime == 0 {
		c.KeepAliveTime = 10 * time.Second
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 3 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	c.setDefaults()
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	return nil
}

// SQLiteConfig SQLite 连接配置
type SQLiteConfig struct {
	Name string `mapstructure:"name"` // 连接器名称 (默认: "sqlite")
	Path string `mapstructure:"path"` // [必填] 文件路径，或 "file::memory:?cache=shared"
}

func (c *SQLiteConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	if c.Name == "" {
		c.Name = "sqlite"
	}
	if c.Path == "" {
		return xerrors.Wrap(ErrConfig, "sqlite path is required")
	}
	return nil
}
