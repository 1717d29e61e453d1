package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/bits/connector"
)

// NewSQLiteConfig 返回位于 t.TempDir() 的 SQLite 配置，每个测试独立一个库文件
func NewSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	t.Helper()
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: filepath.Join(t.TempDir(), NewID()+".db"),
	}
}

// NewSQLiteConnector 返回已连接的 SQLite 连接器，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	t.Helper()
	conn, err := connector.NewSQLite(NewSQLiteConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to open sqlite")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// NewSQLiteDB 返回 GORM DB 实例
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	return NewSQLiteConnector(t).GetClient()
}
