package snowflake

import (
	"context"
	"sync"

	"github.com/ceyewan/bits/xerrors"
)

// SequenceResolver 为给定时间戳分配下一个序列号
//
// 实现不需要处理序列号耗尽：返回值超过 Layout.MaxSequence() 时，Generator 会等待下一毫秒后重新调用。
// 时间戳小于已见过的最大值时应返回 ErrClockRegression。
type SequenceResolver interface {
	Next(ctx context.Context, timestamp int64) (int64, error)
}

// ResolverFunc 将函数适配为 SequenceResolver
type ResolverFunc func(ctx context.Context, timestamp int64) (int64, error)

// Next 调用 f
func (f ResolverFunc) Next(ctx context.Context, timestamp int64) (int64, error) {
	return f(ctx, timestamp)
}

// MemoryResolver 进程内的默认解析器，并发安全
type MemoryResolver struct {
	mu            sync.Mutex
	lastTimestamp int64
	lastSequence  int64
}

// NewMemoryResolver 创建尚未分配过序列号的解析器
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{lastTimestamp: -1, lastSequence: -1}
}

// Next 时间戳前进时归零，相同时递增，后退时返回 ErrClockRegression
func (r *MemoryResolver) Next(_ context.Context, timestamp int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case timestamp > r.lastTimestamp:
		r.lastTimestamp = timestamp
		r.lastSequence = 0
	case timestamp == r.lastTimestamp:
		r.lastSequence++
	default:
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrClockRegression, "timestamp %d is behind %d", timestamp, r.lastTimestamp),
			CodeClockRegression,
		)
	}
	return r.lastSequence, nil
}

// Last 返回最近一次分配的 (时间戳, 序列号)，尚未分配时为 (-1, -1)
func (r *MemoryResolver) Last() (int64, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTimestamp, r.lastSequence
}

// Reset 清空状态
func (r *MemoryResolver) Reset() {
	r.mu.Lock()
	r.lastTimestamp = -1
	r.lastSequence = -1
	r.mu.Unlock()
}
