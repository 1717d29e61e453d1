package snowflake

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/bits/xerrors"
)

// DefaultEtcdRetries 事务冲突时的最大重试次数
const DefaultEtcdRetries = 16

// EtcdResolver 在 etcd 的单个 key 上保存 "timestamp:sequence"，通过 ModRevision 比较实现 CAS
//
// 与 RedisResolver 不同，它能检测跨进程的时钟回拨。
type EtcdResolver struct {
	kv      clientv3.KV
	key     string
	retries int
}

// NewEtcdResolver key 应包含节点标识，例如 "/bits/snowflake/1/15"
func NewEtcdResolver(kv clientv3.KV, key string, retries int) (*EtcdResolver, error) {
	if kv == nil {
		return nil, ErrConnectorNil
	}
	if retries <= 0 {
		retries = DefaultEtcdRetries
	}
	return &EtcdResolver{kv: kv, key: key, retries: retries}, nil
}

// Next 读取上次的 (时间戳, 序列号)，计算下一个值后按 ModRevision 条件写回，冲突时重试
func (r *EtcdResolver) Next(ctx context.Context, timestamp int64) (int64, error) {
	for attempt := 0; attempt < r.retries; attempt++ {
		resp, err := r.kv.Get(ctx, r.key)
		if err != nil {
			return 0, xerrors.Wrapf(err, "etcd resolver: get %s", r.key)
		}

		var rev int64
		lastTs, lastSeq := int64(-1), int64(-1)
		if len(resp.Kvs) > 0 {
			rev = resp.Kvs[0].ModRevision
			lastTs, lastSeq, err = decodeState(string(resp.Kvs[0].Value))
			if err != nil {
				return 0, err
			}
		}

		var seq int64
		switch {
		case timestamp > lastTs:
			seq = 0
		case timestamp == lastTs:
			seq = lastSeq + 1
		default:
			return 0, xerrors.WithCode(
				xerrors.Wrapf(ErrClockRegression, "etcd resolver: timestamp %d is behind %d", timestamp, lastTs),
				CodeClockRegression,
			)
		}

		txn, err := r.kv.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(r.key), "=", rev)).
			Then(clientv3.OpPut(r.key, encodeState(timestamp, seq))).
			Commit()
		if err != nil {
			return 0, xerrors.Wrapf(err, "etcd resolver: txn %s", r.key)
		}
		if txn.Succeeded {
			return seq, nil
		}
	}
	return 0, xerrors.WithCode(
		xerrors.Wrapf(ErrSequenceConflict, "etcd resolver: %d attempts on %s", r.retries, r.key),
		CodeSequenceConflict,
	)
}

func encodeState(timestamp, seq int64) string {
	return fmt.Sprintf("%d:%d", timestamp, seq)
}

func decodeState(v string) (int64, int64, error) {
	tsPart, seqPart, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "etcd resolver: malformed state %q", v)
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "etcd resolver: malformed timestamp %q", v)
	}
	seq, err := strconv.ParseInt(seqPart, 10, 64)
	if err != nil {
		return 0, 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "etcd resolver: malformed sequence %q", v)
	}
	return ts, seq, nil
}
