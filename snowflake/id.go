package snowflake

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ceyewan/bits/xerrors"
)

// DefaultEpoch 2023-01-01T00:00:00Z
var DefaultEpoch = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// ID 不可变的 Snowflake ID。字段均由原始值按位宽实时解出，不单独保存
//
// ID 记住生成或解析它时使用的 Layout 和 epoch；零值 ID 使用 DefaultLayout 和 DefaultEpoch。
type ID struct {
	raw      int64
	layout   Layout
	epochMs  int64
	hasEpoch bool
}

func newID(raw int64, layout Layout, epoch time.Time) ID {
	return ID{raw: raw, layout: layout, epochMs: epoch.UnixMilli(), hasEpoch: true}
}

// FromInt64 使用 DefaultLayout 和 DefaultEpoch 包装一个原始值
func FromInt64(raw int64) ID {
	return ID{raw: raw}
}

// Int64 原始的 64 位整数，持久化时只需要保存这个值
func (id ID) Int64() int64 {
	return id.raw
}

// Layout 解包使用的位宽
func (id ID) Layout() Layout {
	return id.layout.orDefault()
}

// Fields 一次解出全部字段
func (id ID) Fields() Fields {
	return id.Layout().Unpack(id.raw)
}

// Timestamp 相对 epoch 的毫秒数
func (id ID) Timestamp() int64 {
	return id.Fields().Timestamp
}

// DatacenterID 数据中心 ID
func (id ID) DatacenterID() int64 {
	return id.Fields().DatacenterID
}

// WorkerID 工作节点 ID
func (id ID) WorkerID() int64 {
	return id.Fields().WorkerID
}

// Sequence 同一毫秒内的序列号
func (id ID) Sequence() int64 {
	return id.Fields().Sequence
}

// Epoch 生成该 ID 时的 epoch
func (id ID) Epoch() time.Time {
	if !id.hasEpoch {
		return DefaultEpoch
	}
	return time.UnixMilli(id.epochMs).UTC()
}

// Time 时间戳对应的绝对时间（UTC）
func (id ID) Time() time.Time {
	return id.Epoch().Add(time.Duration(id.Timestamp()) * time.Millisecond)
}

// IsZero 原始值为 0
func (id ID) IsZero() bool {
	return id.raw == 0
}

// String 十进制表示
func (id ID) String() string {
	return strconv.FormatInt(id.raw, 10)
}

// MarshalJSON 输出十进制字符串，避免 JavaScript 丢失精度
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON 接受字符串或数字，Layout 和 epoch 保持接收者原有的设置
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	raw, err := parseRaw(string(data))
	if err != nil {
		return err
	}
	id.raw = raw
	return nil
}

// Value 实现 driver.Valuer，数据库中保存为 BIGINT
func (id ID) Value() (driver.Value, error) {
	return id.raw, nil
}

// Scan 实现 sql.Scanner
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		id.raw = 0
	case int64:
		id.raw = v
	case []byte:
		raw, err := parseRaw(string(v))
		if err != nil {
			return err
		}
		id.raw = raw
	case string:
		raw, err := parseRaw(v)
		if err != nil {
			return err
		}
		id.raw = raw
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "snowflake: cannot scan %T into ID", src)
	}
	return nil
}

func parseRaw(s string) (int64, error) {
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "snowflake: parse %q: %v", s, err)
	}
	if raw < 0 {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "snowflake: negative id %d", raw)
	}
	return raw, nil
}

// Format 支持 %d/%s/%v，%+v 输出解码后的字段
func (id ID) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('+'):
		fl := id.Fields()
		fmt.Fprintf(f, "%d{ts=%d dc=%d worker=%d seq=%d}", id.raw, fl.Timestamp, fl.DatacenterID, fl.WorkerID, fl.Sequence)
	case verb == 'x' || verb == 'X' || verb == 'b' || verb == 'o':
		fmt.Fprintf(f, fmt.FormatString(f, verb), id.raw)
	default:
		fmt.Fprint(f, id.String())
	}
}
