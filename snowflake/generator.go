// Package snowflake 生成和解析 64 位、按时间有序的 Snowflake ID。
//
// ID 由时间戳（相对 epoch 的毫秒数）、数据中心 ID、工作节点 ID 和同一毫秒内的序列号组成，
// 默认位宽为 41/5/5/12，最高位恒为 0。
//
//	gen, err := snowflake.New(&snowflake.Config{DatacenterID: 1, WorkerID: 15},
//		snowflake.WithLogger(logger), snowflake.WithMeter(meter))
//	if err != nil {
//		return err
//	}
//	id, err := gen.Make(ctx)
//	fmt.Println(id.Int64(), id.WorkerID(), id.Time())
//
// 跨进程的唯一性依赖于为每个进程分配不同的 (数据中心, 工作节点)，本包不做协调。
package snowflake

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

const tracerName = "github.com/ceyewan/bits/snowflake"

// Generator 并发安全的 ID 生成器
type Generator struct {
	epoch        time.Time
	datacenterID int64
	workerID     int64
	layout       Layout
	strict       bool
	policy       ClockPolicy
	maxDrift     time.Duration

	clock        Clock
	resolver     SequenceResolver
	resolverName string
	logger       clog.Logger
	metrics      *generatorMetrics
	tracer       trace.Tracer // 内存解析器不创建 span，为 nil

	// mu 覆盖读时钟、回拨检查和序列号分配，避免把过期的时间戳交给解析器
	mu        sync.Mutex
	highWater int64
}

// New 创建 Generator，cfg 为 nil 时使用 DefaultConfig()
func New(cfg *Config, opts ...Option) (*Generator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts...)

	epoch, _ := cfg.EpochTime()
	g := &Generator{
		epoch:        epoch,
		datacenterID: cfg.DatacenterID,
		workerID:     cfg.WorkerID,
		layout:       cfg.Layout,
		strict:       cfg.Strict,
		policy:       cfg.ClockPolicy,
		maxDrift:     cfg.MaxClockDrift,
		clock:        o.clock,
		highWater:    -1,
	}
	if cfg.RandomNode {
		g.datacenterID, g.workerID = randomNode(cfg.Layout)
	}

	resolverName := cfg.Resolver
	if o.resolver != nil {
		resolverName = "custom"
	}
	g.logger = o.logger.With(
		clog.Int64("datacenter_id", g.datacenterID),
		clog.Int64("worker_id", g.workerID),
		clog.String("resolver", resolverName),
	)

	resolver, err := g.buildResolver(cfg, o)
	if err != nil {
		return nil, err
	}
	g.resolver = resolver
	g.resolverName = resolverName
	if resolverName != ResolverMemory {
		g.tracer = o.tracer.Tracer(tracerName)
	}

	m, err := newGeneratorMetrics(o.meter, resolverName)
	if err != nil {
		return nil, err
	}
	g.metrics = m

	if !g.strict {
		if err := g.layout.Check(Fields{DatacenterID: g.datacenterID, WorkerID: g.workerID}); err != nil {
			g.logger.Warn("node id does not fit layout and will be truncated", clog.Error(err))
		}
	}
	g.logger.Info("snowflake generator created",
		clog.String("epoch", g.epoch.Format(time.RFC3339)),
		clog.String("layout", g.layout.String()),
		clog.String("clock_policy", string(g.policy)),
		clog.Bool("random_node", cfg.RandomNode),
	)
	return g, nil
}

// Must 类似 New，但出错时 panic，仅用于初始化阶段
func Must(cfg *Config, opts ...Option) *Generator {
	g, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("snowflake: %v", err))
	}
	return g
}

func (g *Generator) buildResolver(cfg *Config, o *options) (SequenceResolver, error) {
	if o.resolver != nil {
		return o.resolver, nil
	}
	switch cfg.Resolver {
	case ResolverRedis:
		if o.redis == nil || o.redis.GetClient() == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "resolver redis requires WithRedis")
		}
		prefix := fmt.Sprintf("%s:%d:%d", cfg.KeyPrefix, g.datacenterID, g.workerID)
		return NewRedisResolver(o.redis.GetClient(), prefix, cfg.KeyTTL)
	case ResolverEtcd:
		if o.etcd == nil || o.etcd.GetClient() == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "resolver etcd requires WithEtcd")
		}
		key := fmt.Sprintf("/%s/%d/%d", strings.ReplaceAll(cfg.KeyPrefix, ":", "/"), g.datacenterID, g.workerID)
		return NewEtcdResolver(o.etcd.GetClient(), key, 0)
	default:
		return NewMemoryResolver(), nil
	}
}

func (g *Generator) resolve(ctx context.Context, ts int64) (int64, error) {
	if g.tracer == nil {
		return g.resolver.Next(ctx, ts)
	}
	ctx, span := g.tracer.Start(ctx, "snowflake.resolve", trace.WithAttributes(
		attribute.String("snowflake.resolver", g.resolverName),
		attribute.Int64("snowflake.timestamp", ts),
		attribute.Int64("snowflake.datacenter_id", g.datacenterID),
		attribute.Int64("snowflake.worker_id", g.workerID),
	))
	defer span.End()

	seq, err := g.resolver.Next(ctx, ts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("snowflake.sequence", seq))
	return seq, nil
}

// Epoch 时间戳的起点，已截断到毫秒
func (g *Generator) Epoch() time.Time {
	return g.epoch
}

// DatacenterID 本生成器写入 ID 的数据中心 ID（RandomNode 时为随机结果）
func (g *Generator) DatacenterID() int64 {
	return g.datacenterID
}

// WorkerID 本生成器写入 ID 的工作节点 ID
func (g *Generator) WorkerID() int64 {
	return g.workerID
}

// Layout 打包使用的位宽
func (g *Generator) Layout() Layout {
	return g.layout
}

// Make 用当前时间生成一个 ID
//
// 序列号耗尽时等待下一毫秒，不会返回错误；时钟回拨按 ClockPolicy 处理。
// 所有等待都受 ctx 约束，reuse 策略下借用的未来时间不超过 MaxClockDrift。
// 只有 ctx 取消、回拨超出策略、时间早于 epoch、严格模式溢出或解析器 I/O 失败时返回错误，调用方可重试。
func (g *Generator) Make(ctx context.Context) (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts, err := g.now()
	if err != nil {
		return ID{}, err
	}
	if ts, err = g.handleRegression(ctx, ts); err != nil {
		return ID{}, err
	}

	maxSeq := g.layout.MaxSequence()
	var seq int64
	for {
		seq, err = g.resolve(ctx, ts)
		if err != nil {
			if xerrors.Is(err, ErrClockRegression) {
				g.metrics.regression(ctx, g.policy)
			}
			g.logger.WarnContext(ctx, "sequence resolve failed", clog.Int64("timestamp", ts), clog.Error(err))
			return ID{}, xerrors.Wrap(err, "resolve sequence")
		}
		if seq <= maxSeq {
			break
		}
		g.metrics.exhausted.Inc(ctx, g.metrics.labels...)
		if ts, err = g.nextTimestamp(ctx, ts); err != nil {
			return ID{}, err
		}
	}

	if ts > g.highWater {
		g.highWater = ts
	}

	id, err := g.pack(Fields{Timestamp: ts, DatacenterID: g.datacenterID, WorkerID: g.workerID, Sequence: seq})
	if err != nil {
		return ID{}, err
	}
	g.metrics.generated.Inc(ctx, g.metrics.labels...)
	return id, nil
}

// MakeFromTimestamp 返回时刻 t 能发出的最小 ID：节点与序列号均为 0，不经过解析器
//
// 用于构造范围查询的下界，不代表一次真实的生成。
func (g *Generator) MakeFromTimestamp(t time.Time) (ID, error) {
	ts, err := g.sinceEpoch(t)
	if err != nil {
		return ID{}, err
	}
	return g.pack(Fields{Timestamp: ts})
}

// MaxFromTimestamp 返回时刻 t 能发出的最大 ID，用作范围查询的上界
func (g *Generator) MaxFromTimestamp(t time.Time) (ID, error) {
	ts, err := g.sinceEpoch(t)
	if err != nil {
		return ID{}, err
	}
	return g.pack(Fields{
		Timestamp:    ts,
		DatacenterID: g.layout.MaxDatacenterID(),
		WorkerID:     g.layout.MaxWorkerID(),
		Sequence:     g.layout.MaxSequence(),
	})
}

// Parse 使用本生成器的 Layout 和 epoch 解码，不校验 ID 是否由本生成器发出
func (g *Generator) Parse(raw int64) ID {
	return newID(raw, g.layout, g.epoch)
}

// ParseString 解析十进制字符串
func (g *Generator) ParseString(s string) (ID, error) {
	raw, err := parseRaw(strings.TrimSpace(s))
	if err != nil {
		return ID{}, err
	}
	return g.Parse(raw), nil
}

func (g *Generator) pack(f Fields) (ID, error) {
	if !g.strict {
		return newID(g.layout.Pack(f), g.layout, g.epoch), nil
	}
	raw, err := g.layout.PackStrict(f)
	if err != nil {
		return ID{}, xerrors.WithCode(err, CodeFieldOverflow)
	}
	return newID(raw, g.layout, g.epoch), nil
}

func (g *Generator) now() (int64, error) {
	return g.sinceEpoch(g.clock.Now())
}

func (g *Generator) sinceEpoch(t time.Time) (int64, error) {
	ts := t.Sub(g.epoch).Milliseconds()
	if ts < 0 {
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrBeforeEpoch, "%s is before %s", t.Format(time.RFC3339Nano), g.epoch.Format(time.RFC3339)),
			CodeBeforeEpoch,
		)
	}
	return ts, nil
}

// handleRegression 时间戳低于已发出的最大值时按策略处理，返回可以继续使用的时间戳
func (g *Generator) handleRegression(ctx context.Context, ts int64) (int64, error) {
	if ts >= g.highWater {
		return ts, nil
	}

	drift := time.Duration(g.highWater-ts) * time.Millisecond
	g.metrics.regression(ctx, g.policy)
	g.logger.WarnContext(ctx, "clock moved backwards",
		clog.Int64("timestamp", ts),
		clog.Int64("high_water", g.highWater),
		clog.Duration("drift", drift),
		clog.String("policy", string(g.policy)),
	)

	switch g.policy {
	case ClockPolicyReuse:
		return g.highWater, nil
	case ClockPolicyWait:
		if drift > g.maxDrift {
			return 0, regressionError(drift)
		}
		start := time.Now()
		caught, err := g.waitUntil(ctx, g.highWater)
		if err != nil {
			return 0, err
		}
		g.metrics.observeWait(ctx, "regression", time.Since(start))
		return caught, nil
	default:
		return 0, regressionError(drift)
	}
}

func regressionError(drift time.Duration) error {
	return xerrors.WithCode(
		xerrors.Wrapf(ErrClockRegression, "clock is %s behind", drift),
		CodeClockRegression,
	)
}

// nextTimestamp 序列号耗尽后选择下一个毫秒
//
// 时钟已越过 ts 时直接使用当前时间。reuse 策略下逻辑时间可能领先于时钟，
// 领先量不超过 MaxClockDrift 时借用下一毫秒，超过则返回 ErrClockRegression，不在锁内等待时钟追上。
// 其余情况等待时钟进入下一毫秒。
func (g *Generator) nextTimestamp(ctx context.Context, ts int64) (int64, error) {
	now, err := g.now()
	if err != nil {
		return 0, err
	}
	if now > ts {
		return now, nil
	}
	if g.policy == ClockPolicyReuse && now < ts {
		lead := time.Duration(ts+1-now) * time.Millisecond
		if lead > g.maxDrift {
			g.metrics.regression(ctx, g.policy)
			g.logger.WarnContext(ctx, "sequence exhausted while clock is behind",
				clog.Int64("timestamp", ts),
				clog.Int64("now", now),
				clog.Duration("lead", lead),
			)
			return 0, regressionError(lead)
		}
		return ts + 1, nil
	}

	start := time.Now()
	next, err := g.waitUntil(ctx, ts+1)
	if err != nil {
		return 0, err
	}
	g.metrics.observeWait(ctx, "exhausted", time.Since(start))
	return next, nil
}

// waitStep 单次休眠上限，休眠期间仍能及时响应 ctx 取消和时钟跳变
const waitStep = time.Millisecond

// waitUntil 等待时钟到达 target 毫秒，差距超过 1ms 时分段休眠，否则让出调度
func (g *Generator) waitUntil(ctx context.Context, target int64) (int64, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		ts, err := g.now()
		if err != nil {
			return 0, err
		}
		if ts >= target {
			return ts, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, xerrors.Wrap(err, "wait for clock")
		}
		if target-ts <= 1 {
			runtime.Gosched()
			continue
		}

		if timer == nil {
			timer = time.NewTimer(waitStep)
		} else {
			timer.Reset(waitStep)
		}
		select {
		case <-ctx.Done():
			return 0, xerrors.Wrap(ctx.Err(), "wait for clock")
		case <-timer.C:
		}
	}
}
