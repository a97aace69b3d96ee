package api

import (
	"container/list"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"spatial-index/internal/logger"
	"spatial-index/internal/metrics"
)

// 文档注释：带 TTL 的进程内 LRU
// 背景：热点区域在短周期内重复查询，使用进程内缓存降低遍历开销；值类型由调用方决定。
// 约束：过期项在读取时惰性淘汰；容量按条目数计，超出时从最久未用端逐出。
type LRU[V any] struct {
	mu      sync.Mutex
	cap     int
	ttl     time.Duration
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

type lruEntry[V any] struct {
	key     string
	val     V
	expires time.Time
}

func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	return &LRU[V]{
		cap:     capacity,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

func (c *LRU[V]) Get(k string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[k]
	if !ok {
		return zero, false
	}
	ent := e.Value.(*lruEntry[V])
	if !c.now().Before(ent.expires) {
		c.evict(e)
		return zero, false
	}
	c.order.MoveToFront(e)
	return ent.val, true
}

func (c *LRU[V]) Set(k string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.entries[k]; ok {
		ent := e.Value.(*lruEntry[V])
		ent.val, ent.expires = v, exp
		c.order.MoveToFront(e)
		return
	}
	c.entries[k] = c.order.PushFront(&lruEntry[V]{key: k, val: v, expires: exp})
	for c.order.Len() > c.cap {
		c.evict(c.order.Back())
	}
}

// evict 需持有 c.mu
func (c *LRU[V]) evict(e *list.Element) {
	delete(c.entries, e.Value.(*lruEntry[V]).key)
	c.order.Remove(e)
}

func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// 文档注释：两级查询缓存（进程内 LRU → Redis）
// 背景：Redis 作为本地 LRU 之后的第二层，容纳 LRU 逐出的结果；Redis 为空时只用本地 LRU。
// 约束：键含树实例号，实例号随建树与进程启动重新生成，因此不同进程、重启前后互不命中；
// Redis 读写失败只记日志不影响主流程；缓存值为 JSON 编码的坐标列表。
type QueryCache struct {
	lru *LRU[[][]float64]
	rc  *redis.Client
	ttl time.Duration
}

func NewQueryCache(size int, ttl time.Duration, rc *redis.Client) *QueryCache {
	if size <= 0 {
		return &QueryCache{rc: rc, ttl: ttl}
	}
	return &QueryCache{lru: NewLRU[[][]float64](size, ttl), rc: rc, ttl: ttl}
}

// 缓存键：spatial:q:<树>:<实例>:<版本>:<中心>:<半宽>
func queryKey(tree, instance string, version uint64, center, half []float64) string {
	var b strings.Builder
	b.WriteString("spatial:q:")
	b.WriteString(tree)
	b.WriteByte(':')
	b.WriteString(instance)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(version, 10))
	b.WriteByte(':')
	writeCoords(&b, center)
	b.WriteByte(':')
	writeCoords(&b, half)
	return b.String()
}

func writeCoords(b *strings.Builder, xs []float64) {
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
}

func (c *QueryCache) Get(ctx context.Context, key string) ([][]float64, bool) {
	if c == nil {
		return nil, false
	}
	if c.lru != nil {
		if v, ok := c.lru.Get(key); ok {
			metrics.CacheHitsTotal.WithLabelValues("lru").Inc()
			return v, true
		}
	}
	if c.rc != nil {
		s, err := c.rc.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			logger.L().Debug("redis_get_error", "key", key, "err", err)
		}
		if s != "" {
			var v [][]float64
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
				if c.lru != nil {
					c.lru.Set(key, v)
				}
				return v, true
			}
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *QueryCache) Set(ctx context.Context, key string, v [][]float64) {
	if c == nil {
		return
	}
	if c.lru != nil {
		c.lru.Set(key, v)
	}
	if c.rc != nil {
		b, _ := json.Marshal(v)
		if err := c.rc.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
			logger.L().Debug("redis_set_error", "key", key, "err", err)
		}
	}
}
