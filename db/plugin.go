package db

import (
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/snowflake"
	"github.com/ceyewan/bits/xerrors"
)

const pluginName = "bits:snowflake"

var idType = reflect.TypeOf(snowflake.ID{})

// Plugin 在 gorm:create 之前为零值的 Snowflake 列分配 ID，已有值的列保持不变
type Plugin struct {
	gen    *snowflake.Generator
	logger clog.Logger
}

// NewPlugin 也可以脱离 DB 组件单独使用：gormDB.Use(db.NewPlugin(gen, logger))
func NewPlugin(gen *snowflake.Generator, logger clog.Logger) *Plugin {
	if logger == nil {
		logger = clog.Discard()
	}
	return &Plugin{gen: gen, logger: logger}
}

func (p *Plugin) Name() string {
	return pluginName
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register(pluginName, p.assign)
}

func (p *Plugin) assign(tx *gorm.DB) {
	if tx.Error != nil || tx.Statement.Schema == nil {
		return
	}
	fields, err := p.columns(tx.Statement)
	if err != nil {
		_ = tx.AddError(err)
		return
	}
	if len(fields) == 0 {
		return
	}

	rv := tx.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := p.fill(tx, fields, reflect.Indirect(rv.Index(i))); err != nil {
				_ = tx.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := p.fill(tx, fields, rv); err != nil {
			_ = tx.AddError(err)
		}
	}
}

// columns 模型实现 SnowflakeColumns 时按声明查找，否则取非自增的整数主键
func (p *Plugin) columns(stmt *gorm.Statement) ([]*schema.Field, error) {
	s := stmt.Schema
	if cols, ok := reflect.New(s.ModelType).Interface().(SnowflakeColumns); ok {
		fields := make([]*schema.Field, 0, len(cols.SnowflakeColumns()))
		for _, name := range cols.SnowflakeColumns() {
			f := s.LookUpField(name)
			if f == nil {
				return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "db: %s has no column %q", s.Name, name)
			}
			if !supported(f) {
				return nil, xerrors.Wrapf(ErrUnsupportedKey, "%s.%s", s.Name, f.Name)
			}
			fields = append(fields, f)
		}
		return fields, nil
	}

	pk := s.PrioritizedPrimaryField
	if pk == nil || pk.AutoIncrement || !supported(pk) {
		return nil, nil
	}
	return []*schema.Field{pk}, nil
}

func supported(f *schema.Field) bool {
	if f.FieldType == idType {
		return true
	}
	switch f.FieldType.Kind() {
	case reflect.Int64, reflect.Uint64:
		return true
	}
	return false
}

func (p *Plugin) fill(tx *gorm.DB, fields []*schema.Field, rv reflect.Value) error {
	ctx := tx.Statement.Context
	for _, f := range fields {
		if _, zero := f.ValueOf(ctx, rv); !zero {
			continue
		}
		id, err := p.gen.Make(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "assign snowflake id failed",
				clog.String("table", tx.Statement.Table),
				clog.String("column", f.DBName),
				clog.Error(err),
			)
			return xerrors.Wrapf(err, "db: assign %s.%s", tx.Statement.Table, f.DBName)
		}
		var v interface{} = id.Int64()
		if f.FieldType == idType {
			v = id
		}
		if err := f.Set(ctx, rv, v); err != nil {
			return xerrors.Wrapf(err, "db: set %s.%s", tx.Statement.Table, f.DBName)
		}
	}
	return nil
}
