// Package testkit 提供 bits 测试共用的依赖：日志、指标、唯一 ID 以及 Redis/Etcd/SQLite 连接器。
//
// 需要外部服务的辅助函数在服务不可用时调用 t.Skip，单元测试不会因为缺少 Docker 而失败。
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/metrics"
)

// Kit 通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回带默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回测试用 logger，设置 BITS_TEST_LOG=1 时输出到 stderr，否则静默
func NewLogger() clog.Logger {
	if os.Getenv("BITS_TEST_LOG") == "" {
		return clog.Discard()
	}
	logger, err := clog.New(clog.NewDevDefaultConfig(), clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回测试用 meter，使用独立 Registry，不监听端口
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("bits-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回 8 位唯一 ID，用于 key 前缀或表名后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
