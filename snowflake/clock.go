package snowflake

import "time"

// Clock 当前时间来源。不要求单调，回拨由 Generator 按 ClockPolicy 处理
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 返回 time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc 将函数适配为 Clock，常用于测试
type ClockFunc func() time.Time

// Now 调用 f
func (f ClockFunc) Now() time.Time {
	return f()
}
