package db

import (
	"time"

	"gorm.io/gorm"
)

// Model 以 Snowflake ID 作为主键的基础模型，嵌入后创建记录时自动分配 ID
//
//	type Order struct {
//		db.Model
//		UserID int64
//	}
type Model struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// SnowflakeColumns 模型实现该方法后，插件为列出的列（字段名或列名）分配 ID，而不仅是主键
type SnowflakeColumns interface {
	SnowflakeColumns() []string
}
