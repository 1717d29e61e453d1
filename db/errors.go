package db

import "github.com/ceyewan/bits/xerrors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.Join(xerrors.New("db: invalid config"), xerrors.ErrInvalidInput)

	// ErrSQLiteConnectorRequired SQLite 连接器未提供
	ErrSQLiteConnectorRequired = xerrors.New("db: sqlite connector is required")

	// ErrUnsupportedKey 模型声明的 Snowflake 列不是整数类型
	ErrUnsupportedKey = xerrors.New("db: snowflake column must be int64, uint64 or snowflake.ID")
)
