// Package connector 管理 bits 依赖的外部连接：Redis、Etcd 与 SQLite。
//
//   - NewXXX 只创建连接器，Connect 时才真正建立连接，Connect 幂等
//   - Connector 拥有底层连接的生命周期，应在应用层 defer Close()
//   - 序列号解析器、ORM 插件只借用 Connector 的客户端，不负责关闭
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	resolver := snowflake.NewRedisResolver(conn.GetClient())
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接，重复调用直接返回 nil
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，可重复调用
	Close() error

	// HealthCheck 发送探测请求并更新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次检查的结果，不阻塞
	IsHealthy() bool

	// Name 连接器实例名称，用于日志和指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Connect 之前或 Close 之后可能为 nil
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// SQLiteConnector SQLite 连接器，基于 GORM，适合测试和嵌入式场景
type SQLiteConnector interface {
	TypedConnector[*gorm.DB]
}
