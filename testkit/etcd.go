package testkit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcetcd "github.com/testcontainers/testcontainers-go/modules/etcd"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/bits/connector"
)

// EtcdEndpointsEnv 逗号分隔的 Etcd 地址，设置后跳过容器启动
const EtcdEndpointsEnv = "BITS_TEST_ETCD_ENDPOINTS"

// NewEtcdConfig 返回 Etcd 测试配置，规则同 NewRedisConfig
func NewEtcdConfig(t *testing.T) *connector.EtcdConfig {
	t.Helper()
	skipIfShort(t)

	var endpoints []string
	if env := os.Getenv(EtcdEndpointsEnv); env != "" {
		endpoints = strings.Split(env, ",")
	} else {
		endpoints = []string{startEtcdContainer(t)}
	}
	return &connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   endpoints,
		DialTimeout: 3 * time.Second,
	}
}

func startEtcdContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcetcd.Run(ctx, "quay.io/coreos/etcd:v3.5.9")
	require.NoError(t, err, "failed to start etcd container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "2379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

// NewEtcdConnector 返回已连接的 Etcd 连接器，连接失败时跳过测试
func NewEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	conn, err := connector.NewEtcd(NewEtcdConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create etcd connector")
	t.Cleanup(func() {
		_ = conn.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Skipf("etcd not available: %v", err)
	}
	return conn
}

// NewEtcdClient 返回原生 Etcd 客户端
func NewEtcdClient(t *testing.T) *clientv3.Client {
	t.Helper()
	return NewEtcdConnector(t).GetClient()
}
