package testkit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/bits/connector"
)

// RedisAddrEnv 指定已有的 Redis 地址时跳过容器启动
const RedisAddrEnv = "BITS_TEST_REDIS_ADDR"

// NewRedisConfig 返回 Redis 测试配置
//
// 优先使用 BITS_TEST_REDIS_ADDR，否则通过 testcontainers 启动 redis:7-alpine，
// Docker 不可用时跳过测试
func NewRedisConfig(t *testing.T) *connector.RedisConfig {
	t.Helper()
	skipIfShort(t)

	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		addr = startRedisContainer(t)
	}
	return &connector.RedisConfig{
		Name:        "test-redis",
		Addr:        addr,
		DB:          1,
		DialTimeout: 2 * time.Second,
	}
}

func startRedisContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

// NewRedisConnector 返回已连接的 Redis 连接器，连接失败时跳过测试
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(NewRedisConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	t.Cleanup(func() {
		_ = conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return conn
}

// NewRedisClient 返回原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return NewRedisConnector(t).GetClient()
}
