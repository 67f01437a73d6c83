package toxicity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache 判定缓存，同一段文本不重复调用外部服务
type Cache interface {
	Get(ctx context.Context, key string) (Verdict, bool)
	Set(ctx context.Context, key string, v Verdict)
}

// CacheKey 文本的 sha256
func CacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

const defaultCacheTTL = 24 * time.Hour

// -------------------- Redis --------------------

// RedisCache 多实例共享的判定缓存
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{rdb: rdb, prefix: "cm:toxicity:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Verdict, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key string, v Verdict) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}

// -------------------- 本地 LRU --------------------

type lruItem struct {
	verdict   Verdict
	expiresAt time.Time
}

// LRUCache 进程内缓存，带过期时间
type LRUCache struct {
	l   *lru.Cache[string, lruItem]
	ttl time.Duration
}

func NewLRUCache(size int, ttl time.Duration) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	l, err := lru.New[string, lruItem](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{l: l, ttl: ttl}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) (Verdict, bool) {
	it, ok := c.l.Get(key)
	if !ok {
		return Verdict{}, false
	}
	if time.Now().After(it.expiresAt) {
		c.l.Remove(key)
		return Verdict{}, false
	}
	return it.verdict, true
}

func (c *LRUCache) Set(_ context.Context, key string, v Verdict) {
	c.l.Add(key, lruItem{verdict: v, expiresAt: time.Now().Add(c.ttl)})
}
