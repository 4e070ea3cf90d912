package storage

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/redis/go-redis/v9"

	"activity-events/domain"
)

// RedisStore keeps each partition as a hash of encoded rows keyed by RowKey plus a
// sorted set of the RowKeys scored zero, so ZRANGEBYLEX walks the partition in
// clustering order. Keys are [prefix:]view:rows:partition and [prefix:]view:idx:partition;
// the structure marker precedes the partition so no partition value can name another key.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	pageSize int64
}

// NewRedisStore creates a RedisStore. Keys are namespaced by prefix when it is not empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, pageSize: int64(defaultPageSize)}
}

func (s *RedisStore) key(view, kind, partition string) string {
	k := view + ":" + kind + ":" + partition
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) rowsKey(view, partition string) string {
	return s.key(view, "rows", partition)
}

func (s *RedisStore) indexKey(view, partition string) string {
	return s.key(view, "idx", partition)
}

// UpsertRow writes the row and its index entry in one transaction.
func (s *RedisStore) UpsertRow(ctx context.Context, view string, row domain.Row) error {
	payload, err := encodeEntity(row)
	if err != nil {
		return domain.SchemaMismatch("upsert", view, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.rowsKey(view, row.PartitionKey), row.RowKey, payload)
		pipe.ZAdd(ctx, s.indexKey(view, row.PartitionKey), redis.Z{Score: 0, Member: row.RowKey})
		return nil
	})
	return s.classify("upsert", view, err)
}

// QueryRows pages through the partition index and loads each page of rows.
func (s *RedisStore) QueryRows(ctx context.Context, view, partition, after string) iter.Seq2[domain.Row, error] {
	return func(yield func(domain.Row, error) bool) {
		lower := "-"
		if after != "" {
			lower = "(" + after
		}
		for {
			keys, err := s.client.ZRangeByLex(ctx, s.indexKey(view, partition), &redis.ZRangeBy{
				Min:   lower,
				Max:   "+",
				Count: s.pageSize,
			}).Result()
			if err != nil {
				yield(domain.Row{}, s.classify("query", view, err))
				return
			}
			if len(keys) == 0 {
				return
			}
			vals, err := s.client.HMGet(ctx, s.rowsKey(view, partition), keys...).Result()
			if err != nil {
				yield(domain.Row{}, s.classify("query", view, err))
				return
			}
			for _, v := range vals {
				if v == nil {
					continue
				}
				str, ok := v.(string)
				if !ok {
					yield(domain.Row{}, domain.SchemaMismatch("query", view, errors.New("unexpected row encoding")))
					return
				}
				row, err := decodeEntity([]byte(str))
				if err != nil {
					yield(domain.Row{}, domain.SchemaMismatch("query", view, err))
					return
				}
				if !yield(row, nil) {
					return
				}
			}
			if int64(len(keys)) < s.pageSize {
				return
			}
			lower = "(" + keys[len(keys)-1]
		}
	}
}

// GetRow loads one row if present.
func (s *RedisStore) GetRow(ctx context.Context, view, partition, rowKey string) (*domain.Row, error) {
	payload, err := s.client.HGet(ctx, s.rowsKey(view, partition), rowKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.classify("get", view, err)
	}
	row, err := decodeEntity(payload)
	if err != nil {
		return nil, domain.SchemaMismatch("get", view, err)
	}
	return &row, nil
}

// EnsureTables is a no-op; Redis keys are created on first write.
func (s *RedisStore) EnsureTables(ctx context.Context) error { return nil }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.classify("ping", "", s.client.Ping(ctx).Err())
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) classify(op, view string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, redis.Nil) {
		return nil
	}
	var redisErr redis.Error
	if errors.As(err, &redisErr) && !isTransientRedisError(redisErr) {
		// WRONGTYPE and friends: the key does not hold the expected structure.
		return domain.SchemaMismatch(op, view, err)
	}
	return domain.Unavailable(op, view, err)
}

var transientRedisPrefixes = []string{"LOADING", "READONLY", "MASTERDOWN", "TRYAGAIN", "CLUSTERDOWN", "BUSY"}

func isTransientRedisError(err redis.Error) bool {
	msg := err.Error()
	for _, prefix := range transientRedisPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
