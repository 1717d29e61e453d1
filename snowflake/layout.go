package snowflake

import "fmt"

// 字段名，出现在 FieldOverflowError 中
const (
	FieldTimestamp  = "timestamp"
	FieldDatacenter = "datacenter_id"
	FieldWorker     = "worker_id"
	FieldSequence   = "sequence"
)

// totalBits 符号位之外可用的位数
const totalBits = 63

// Layout 各字段的位宽。从高位到低位依次为：符号位(恒为 0)、时间戳、数据中心、工作节点、序列号
//
// 位宽是打包和解包双方共享的约定，不写入 ID 本身。用不同的 Layout 解包只会得到错误的字段边界，不会 panic。
type Layout struct {
	TimestampBits  uint8 `mapstructure:"timestamp_bits" yaml:"timestamp_bits" json:"timestamp_bits"`
	DatacenterBits uint8 `mapstructure:"datacenter_bits" yaml:"datacenter_bits" json:"datacenter_bits"`
	WorkerBits     uint8 `mapstructure:"worker_bits" yaml:"worker_bits" json:"worker_bits"`
	SequenceBits   uint8 `mapstructure:"sequence_bits" yaml:"sequence_bits" json:"sequence_bits"`
}

// Fields 解包后的四个字段
type Fields struct {
	Timestamp    int64
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
}

// DefaultLayout 41 位时间戳、5 位数据中心、5 位工作节点、12 位序列号
func DefaultLayout() Layout {
	return Layout{
		TimestampBits:  41,
		DatacenterBits: 5,
		WorkerBits:     5,
		SequenceBits:   12,
	}
}

// IsZero 所有位宽都为 0，表示未配置
func (l Layout) IsZero() bool {
	return l == Layout{}
}

func (l Layout) orDefault() Layout {
	if l.IsZero() {
		return DefaultLayout()
	}
	return l
}

// Validate 位宽之和必须为 63，时间戳和序列号至少 1 位
func (l Layout) Validate() error {
	sum := int(l.TimestampBits) + int(l.DatacenterBits) + int(l.WorkerBits) + int(l.SequenceBits)
	if sum != totalBits {
		return invalidConfig("layout widths %d+%d+%d+%d must sum to %d",
			l.TimestampBits, l.DatacenterBits, l.WorkerBits, l.SequenceBits, totalBits)
	}
	if l.TimestampBits == 0 || l.SequenceBits == 0 {
		return invalidConfig("timestamp and sequence need at least one bit")
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", l.TimestampBits, l.DatacenterBits, l.WorkerBits, l.SequenceBits)
}

func mask(bits uint8) uint64 {
	return (uint64(1) << bits) - 1
}

func (l Layout) workerShift() uint8 {
	return l.SequenceBits
}

func (l Layout) datacenterShift() uint8 {
	return l.SequenceBits + l.WorkerBits
}

func (l Layout) timestampShift() uint8 {
	return l.SequenceBits + l.WorkerBits + l.DatacenterBits
}

// MaxTimestamp 时间戳字段能表示的最大毫秒数
func (l Layout) MaxTimestamp() int64 {
	return int64(mask(l.TimestampBits))
}

// MaxDatacenterID 数据中心 ID 上限（含）
func (l Layout) MaxDatacenterID() int64 {
	return int64(mask(l.DatacenterBits))
}

// MaxWorkerID 工作节点 ID 上限（含）
func (l Layout) MaxWorkerID() int64 {
	return int64(mask(l.WorkerBits))
}

// MaxSequence 每毫秒最大序列号，默认 4095
func (l Layout) MaxSequence() int64 {
	return int64(mask(l.SequenceBits))
}

// Pack 将四个字段打包为 ID。每个字段先按位宽截断（保留低位），从不返回错误
func (l Layout) Pack(f Fields) int64 {
	v := (uint64(f.Timestamp)&mask(l.TimestampBits))<<l.timestampShift() |
		(uint64(f.DatacenterID)&mask(l.DatacenterBits))<<l.datacenterShift() |
		(uint64(f.WorkerID)&mask(l.WorkerBits))<<l.workerShift() |
		uint64(f.Sequence)&mask(l.SequenceBits)
	return int64(v & mask(totalBits))
}

// PackStrict 与 Pack 相同，但字段为负或超出位宽时返回 *FieldOverflowError
func (l Layout) PackStrict(f Fields) (int64, error) {
	if err := l.Check(f); err != nil {
		return 0, err
	}
	return l.Pack(f), nil
}

// Check 检查字段是否都在位宽范围内
func (l Layout) Check(f Fields) error {
	checks := []struct {
		name  string
		value int64
		bits  uint8
	}{
		{FieldTimestamp, f.Timestamp, l.TimestampBits},
		{FieldDatacenter, f.DatacenterID, l.DatacenterBits},
		{FieldWorker, f.WorkerID, l.WorkerBits},
		{FieldSequence, f.Sequence, l.SequenceBits},
	}
	for _, c := range checks {
		if c.value < 0 || uint64(c.value) > mask(c.bits) {
			return &FieldOverflowError{Field: c.name, Value: c.value, Bits: c.bits}
		}
	}
	return nil
}

// Unpack 按位宽拆出四个字段
func (l Layout) Unpack(id int64) Fields {
	v := uint64(id) & mask(totalBits)
	return Fields{
		Timestamp:    int64((v >> l.timestampShift()) & mask(l.TimestampBits)),
		DatacenterID: int64((v >> l.datacenterShift()) & mask(l.DatacenterBits)),
		WorkerID:     int64((v >> l.workerShift()) & mask(l.WorkerBits)),
		Sequence:     int64(v & mask(l.SequenceBits)),
	}
}
