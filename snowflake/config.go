package snowflake

import (
	"strings"
	"time"
)

// ClockPolicy 时钟回拨时的处理策略
type ClockPolicy string

const (
	// ClockPolicyWait 回拨幅度不超过 MaxClockDrift 时等待时钟追上，否则返回 ErrClockRegression
	ClockPolicyWait ClockPolicy = "wait"
	// ClockPolicyReject 立即返回 ErrClockRegression
	ClockPolicyReject ClockPolicy = "reject"
	// ClockPolicyReuse 沿用已发出的最大时间戳，继续递增序列号
	ClockPolicyReuse ClockPolicy = "reuse"
)

// 序列号解析器类型
const (
	ResolverMemory = "memory"
	ResolverRedis  = "redis"
	ResolverEtcd   = "etcd"
)

const (
	DefaultMaxClockDrift = time.Second
	DefaultKeyPrefix     = "bits:snowflake"
)

// Config Generator 配置，通常从配置文件的 snowflake 节加载
//
//	snowflake:
//	  epoch: "2023-01-01T00:00:00Z"
//	  datacenter_id: 1
//	  worker_id: 15
//	  clock_policy: wait
//	  resolver: memory
type Config struct {
	Epoch        string `mapstructure:"epoch" yaml:"epoch" json:"epoch"` // RFC3339，默认 DefaultEpoch
	DatacenterID int64  `mapstructure:"datacenter_id" yaml:"datacenter_id" json:"datacenter_id"`
	WorkerID     int64  `mapstructure:"worker_id" yaml:"worker_id" json:"worker_id"`

	// RandomNode 为 true 时忽略 DatacenterID/WorkerID，在位宽范围内随机选择
	RandomNode bool `mapstructure:"random_node" yaml:"random_node" json:"random_node"`

	// Layout 全零时使用 DefaultLayout
	Layout Layout `mapstructure:"layout" yaml:"layout" json:"layout"`

	// Strict 为 true 时字段超出位宽返回 ErrFieldOverflow，否则截断
	Strict bool `mapstructure:"strict" yaml:"strict" json:"strict"`

	ClockPolicy   ClockPolicy   `mapstructure:"clock_policy" yaml:"clock_policy" json:"clock_policy"`
	MaxClockDrift time.Duration `mapstructure:"max_clock_drift" yaml:"max_clock_drift" json:"max_clock_drift"`

	// Resolver memory|redis|etcd，redis/etcd 需要通过 WithRedis/WithEtcd 注入连接器
	Resolver  string        `mapstructure:"resolver" yaml:"resolver" json:"resolver"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
	KeyTTL    time.Duration `mapstructure:"key_ttl" yaml:"key_ttl" json:"key_ttl"`
}

// DefaultConfig 节点 (0, 0)，wait 策略，内存解析器
func DefaultConfig() *Config {
	return &Config{
		Epoch:         DefaultEpoch.Format(time.RFC3339),
		Layout:        DefaultLayout(),
		ClockPolicy:   ClockPolicyWait,
		MaxClockDrift: DefaultMaxClockDrift,
		Resolver:      ResolverMemory,
		KeyPrefix:     DefaultKeyPrefix,
		KeyTTL:        DefaultKeyTTL,
	}
}

func (c *Config) setDefaults() {
	c.Layout = c.Layout.orDefault()
	if c.ClockPolicy == "" {
		c.ClockPolicy = ClockPolicyWait
	}
	c.ClockPolicy = ClockPolicy(strings.ToLower(string(c.ClockPolicy)))
	if c.MaxClockDrift <= 0 {
		c.MaxClockDrift = DefaultMaxClockDrift
	}
	if c.Resolver == "" {
		c.Resolver = ResolverMemory
	}
	c.Resolver = strings.ToLower(c.Resolver)
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.KeyTTL <= 0 {
		c.KeyTTL = DefaultKeyTTL
	}
}

// EpochTime 解析 Epoch，空值返回 DefaultEpoch
//
// 结果截断到毫秒，与 ID 中时间戳的精度一致。
func (c *Config) EpochTime() (time.Time, error) {
	if c.Epoch == "" {
		return DefaultEpoch, nil
	}
	t, err := time.Parse(time.RFC3339, c.Epoch)
	if err != nil {
		return time.Time{}, invalidConfig("epoch %q is not RFC3339: %v", c.Epoch, err)
	}
	return t.Truncate(time.Millisecond), nil
}

func (c *Config) validate() error {
	c.setDefaults()
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if _, err := c.EpochTime(); err != nil {
		return err
	}
	switch c.ClockPolicy {
	case ClockPolicyWait, ClockPolicyReject, ClockPolicyReuse:
	default:
		return invalidConfig("unknown clock policy %q", c.ClockPolicy)
	}
	switch c.Resolver {
	case ResolverMemory, ResolverRedis, ResolverEtcd:
	default:
		return invalidConfig("unknown resolver %q", c.Resolver)
	}
	if c.Strict && !c.RandomNode {
		if err := c.Layout.Check(Fields{DatacenterID: c.DatacenterID, WorkerID: c.WorkerID}); err != nil {
			return err
		}
	}
	return nil
}
