package snowflake

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/bits/xerrors"
)

// incrScript 对 (节点, 毫秒) 计数，首次创建时设置过期时间
var incrScript = redis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if v == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// DefaultKeyTTL 每毫秒计数 key 的存活时间
const DefaultKeyTTL = 10 * time.Second

// RedisResolver 在 Redis 上为每个 (节点, 毫秒) 维护计数器
//
// 同一节点对的多个进程共享计数器，序列号在该毫秒内不重复。时钟回拨无法被检测，
// 由 Generator 的高水位检查兜底。
type RedisResolver struct {
	client redis.Scripter
	prefix string
	ttl    time.Duration
}

// NewRedisResolver prefix 应包含节点标识，例如 "bits:snowflake:1:15"
func NewRedisResolver(client redis.Scripter, prefix string, ttl time.Duration) (*RedisResolver, error) {
	if client == nil {
		return nil, ErrConnectorNil
	}
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &RedisResolver{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisResolver) key(timestamp int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, timestamp)
}

// Next 对 (节点, 毫秒) 计数器自增，第一次调用返回 0
func (r *RedisResolver) Next(ctx context.Context, timestamp int64) (int64, error) {
	v, err := incrScript.Run(ctx, r.client, []string{r.key(timestamp)}, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, xerrors.Wrapf(err, "redis resolver: incr %s", r.key(timestamp))
	}
	return v - 1, nil
}
