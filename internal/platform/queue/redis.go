package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// receiveScript claims up to ARGV[2] visible messages atomically: each claimed
// id is hidden until now+visibility, its dequeue count is bumped and a fresh
// receipt is recorded.
var receiveScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
local out = {}
for i, id in ipairs(ids) do
  redis.call('ZADD', KEYS[1], tonumber(ARGV[1]) + tonumber(ARGV[3]), id)
  local count = redis.call('HINCRBY', KEYS[2], id, 1)
  local receipt = ARGV[3 + i]
  redis.call('HSET', KEYS[4], id, receipt)
  local body = redis.call('HGET', KEYS[3], id)
  if not body then body = '' end
  table.insert(out, {id, receipt, body, count})
end
return out
`)

// deleteScript removes a message only if the caller holds the latest receipt.
var deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[4], ARGV[1]) ~= ARGV[2] then
  return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('HDEL', KEYS[4], ARGV[1])
return 1
`)

// RedisQueue stores messages in a sorted set scored by visibility time plus
// hashes for bodies, dequeue counts and receipts. Keys share a hash tag so the
// scripts work on Redis Cluster.
type RedisQueue struct {
	client     redis.UniversalClient
	name       string
	visibility time.Duration
	keys       []string
}

func NewRedisQueue(client redis.UniversalClient, name string, visibility time.Duration) *RedisQueue {
	prefix := fmt.Sprintf("queue:{%s}:", name)
	return &RedisQueue{
		client:     client,
		name:       name,
		visibility: visibility,
		keys: []string{
			prefix + "visible",
			prefix + "dequeues",
			prefix + "bodies",
			prefix + "receipts",
		},
	}
}

func (q *RedisQueue) Name() string { return q.name }

func (q *RedisQueue) Send(ctx context.Context, body []byte) error {
	id := uuid.NewString()
	now := time.Now().UnixMilli()
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys[2], id, body)
		pipe.ZAdd(ctx, q.keys[0], redis.Z{Score: float64(now), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) ReceiveBatch(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		return nil, nil
	}
	args := make([]any, 0, 3+max)
	args = append(args, time.Now().UnixMilli(), max, q.visibility.Milliseconds())
	for range max {
		args = append(args, uuid.NewString())
	}

	raw, err := receiveScript.Run(ctx, q.client, q.keys, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", q.name, err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		fields, ok := item.([]any)
		if !ok || len(fields) != 4 {
			return nil, fmt.Errorf("receive from %s: unexpected reply shape %T", q.name, item)
		}
		msg := Message{
			ID:      toString(fields[0]),
			Receipt: toString(fields[1]),
			Body:    []byte(toString(fields[2])),
		}
		switch c := fields[3].(type) {
		case int64:
			msg.DequeueCount = int(c)
		case string:
			n, _ := strconv.Atoi(c)
			msg.DequeueCount = n
		}
		out = append(out, msg)
	}
	return out, nil
}

func (q *RedisQueue) Delete(ctx context.Context, msg Message) error {
	if err := deleteScript.Run(ctx, q.client, q.keys, msg.ID, msg.Receipt).Err(); err != nil {
		return fmt.Errorf("delete from %s: %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) ApproxDepth(ctx context.Context) (int, error) {
	n, err := q.client.ZCard(ctx, q.keys[0]).Result()
	if err != nil {
		return 0, fmt.Errorf("depth of %s: %w", q.name, err)
	}
	return int(n), nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
