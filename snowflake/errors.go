package snowflake

import (
	"fmt"

	"github.com/ceyewan/bits/xerrors"
)

// 错误码，通过 xerrors.GetCode 读取
const (
	CodeFieldOverflow    = "FIELD_OVERFLOW"
	CodeClockRegression  = "CLOCK_REGRESSION"
	CodeBeforeEpoch      = "BEFORE_EPOCH"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeSequenceConflict = "SEQUENCE_CONFLICT"
)

var (
	// ErrFieldOverflow 严格模式下字段超出位宽
	ErrFieldOverflow = xerrors.New("snowflake: field overflow")

	// ErrClockRegression 时钟回拨，可稍后重试
	ErrClockRegression = xerrors.New("snowflake: clock moved backwards")

	// ErrBeforeEpoch 时间早于 epoch
	ErrBeforeEpoch = xerrors.New("snowflake: time is before epoch")

	// ErrConnectorNil 选择了 redis/etcd 解析器但没有注入连接器
	ErrConnectorNil = xerrors.New("snowflake: connector is nil")

	// ErrSequenceConflict 共享存储上的序列号更新多次冲突
	ErrSequenceConflict = xerrors.New("snowflake: sequence update conflict")
)

// FieldOverflowError 指出超出位宽的字段
type FieldOverflowError struct {
	Field string
	Value int64
	Bits  uint8
}

func (e *FieldOverflowError) Error() string {
	return fmt.Sprintf("snowflake: %s %d does not fit in %d bits", e.Field, e.Value, e.Bits)
}

// Is 使 errors.Is(err, ErrFieldOverflow) 成立
func (e *FieldOverflowError) Is(target error) bool {
	return target == ErrFieldOverflow
}

func invalidConfig(format string, args ...any) error {
	return xerrors.WithCode(xerrors.Wrapf(xerrors.ErrInvalidInput, format, args...), CodeInvalidConfig)
}
