package db

import (
	"time"

	"github.com/ceyewan/bits/xerrors"
)

// Config DB 组件配置
type Config struct {
	// Driver 目前只支持 "sqlite"
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`

	// SlowThreshold 超过该耗时的 SQL 以 Warn 级别记录，默认 200ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold" json:"slow_threshold" yaml:"slow_threshold"`

	// 是否开启分片特性，分片表的主键由 Snowflake 生成器分配
	EnableSharding bool           `mapstructure:"enable_sharding" json:"enable_sharding" yaml:"enable_sharding"`
	ShardingRules  []ShardingRule `mapstructure:"sharding_rules" json:"sharding_rules" yaml:"sharding_rules"`
}

// ShardingRule 分片规则
type ShardingRule struct {
	// 分片键 (例如 "user_id")
	ShardingKey string `mapstructure:"sharding_key" json:"sharding_key" yaml:"sharding_key"`

	// 分片数量 (例如 64)
	NumberOfShards uint `mapstructure:"number_of_shards" json:"number_of_shards" yaml:"number_of_shards"`

	// 应用此规则的逻辑表名列表
	Tables []string `mapstructure:"tables" json:"tables" yaml:"tables"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.Driver != "sqlite" {
		return xerrors.Wrapf(ErrInvalidConfig, "unsupported driver: %s", c.Driver)
	}
	if c.EnableSharding && len(c.ShardingRules) == 0 {
		return xerrors.Wrap(ErrInvalidConfig, "sharding enabled but no rules provided")
	}
	// gorm 按名称注册插件，同一个 DB 上只能挂一个 sharding 中间件
	if len(c.ShardingRules) > 1 {
		return xerrors.Wrapf(ErrInvalidConfig, "only one sharding rule is supported, got %d", len(c.ShardingRules))
	}
	for _, rule := range c.ShardingRules {
		if rule.ShardingKey == "" {
			return xerrors.Wrap(ErrInvalidConfig, "sharding key cannot be empty")
		}
		if rule.NumberOfShards == 0 {
			return xerrors.Wrap(ErrInvalidConfig, "number of shards must be greater than 0")
		}
		if len(rule.Tables) == 0 {
			return xerrors.Wrap(ErrInvalidConfig, "sharding tables cannot be empty")
		}
		for _, table := range rule.Tables {
			if table == "" {
				return xerrors.Wrap(ErrInvalidConfig, "sharding table name cannot be empty")
			}
		}
	}
	return nil
}
