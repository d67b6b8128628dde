// Package rediscache stores feed buffer queues in Redis lists so they
// survive restarts and are shared between API replicas.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

const DefaultTTL = 6 * time.Hour

// NewClient connects to addr and pings it once.
func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Queue implements the feed buffer queue on one Redis list per key:
// RPUSH to append, LPOP to take from the front.
type Queue struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewQueue(log *logger.Logger, rdb *goredis.Client, prefix string, ttl time.Duration) (*Queue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "fynix:feed"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		log:    log.With("service", "RedisFeedQueue"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (q *Queue) key(k string) string {
	return q.prefix + ":" + k
}

func (q *Queue) Push(ctx context.Context, key string, items []types.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	vals := make([]any, 0, len(items))
	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode feed item %q: %w", it.Title, err)
		}
		vals = append(vals, raw)
	}
	k := q.key(key)
	_, err := q.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, k, vals...)
		p.Expire(ctx, k, q.ttl)
		return nil
	})
	return err
}

func (q *Queue) Pop(ctx context.Context, key string, n int) ([]types.ContentItem, error) {
	if n <= 0 {
		return nil, nil
	}
	raws, err := q.rdb.LPopCount(ctx, q.key(key), n).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]types.ContentItem, 0, len(raws))
	for _, raw := range raws {
		var it types.ContentItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			q.log.Warn("dropping undecodable feed item", "key", key, "error", err)
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (q *Queue) Len(ctx context.Context, key string) (int, error) {
	n, err := q.rdb.LLen(ctx, q.key(key)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (q *Queue) Reset(ctx context.Context, key string) error {
	return q.rdb.Del(ctx, q.key(key)).Err()
}
