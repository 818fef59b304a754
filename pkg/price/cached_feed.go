// 文件: pkg/price/cached_feed.go
// 行情源 Redis 缓存层
//
// 【设计模式】装饰器
// - 包装任意 Feed, 调用方只看到 Feed 接口
// - 与 Oracle 的运行级缓存互不影响: Oracle 仍然每批只调用一次 Feed
//
// 【缓存策略】
// - 读: MGET 一次查全部 symbol, miss 的部分交给底层 Feed
// - 写: 底层结果通过 pipeline 回填, 短 TTL
// - Redis 不可用时退化为直连底层 Feed

package price

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

var _ Feed = (*CachedFeed)(nil)

const (
	// 单个价格: lens:price:{symbol}
	cacheKeyPrefix = "lens:price:"

	DefaultCacheTTL = 60 * time.Second
)

// CachedFeed Redis 缓存装饰器
type CachedFeed struct {
	feed  Feed
	redis redis.Cmdable
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedFeed 创建带缓存的行情源
//
// 用法:
//
//	gecko := NewCoinGeckoFeed(cfg, log)
//	feed := NewCachedFeed(gecko, redisClient, time.Minute, log)
//	oracle := NewOracle(feed, log)
func NewCachedFeed(feed Feed, rds redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedFeed {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	log = logger.OrNop(log)
	return &CachedFeed{
		feed:  feed,
		redis: rds,
		ttl:   ttl,
		log:   log.Named("price_cache"),
	}
}

// Prices 实现 Feed
func (c *CachedFeed) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	out := make(map[string]float64, len(symbols))
	misses := symbols

	// 1. 查缓存
	keys := make([]string, len(symbols))
	for i, s := range symbols {
		keys[i] = cacheKey(s)
	}
	vals, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("redis mget failed, bypassing cache", zap.Error(err))
	} else {
		misses = make([]string, 0, len(symbols))
		for i, v := range vals {
			p, ok := decodePrice(v)
			if !ok {
				misses = append(misses, symbols[i])
				continue
			}
			out[symbols[i]] = p
		}
	}

	if len(misses) == 0 {
		return out, nil
	}

	// 2. miss, 查底层
	// 出错时仍返回命中部分, Oracle 会保留它们
	fetched, err := c.feed.Prices(ctx, misses)
	if err != nil {
		return out, err
	}
	for s, p := range fetched {
		out[s] = p
	}

	// 3. 回填
	c.store(ctx, fetched)

	c.log.Debug("price cache",
		zap.Int("hits", len(symbols)-len(misses)),
		zap.Int("misses", len(misses)))
	return out, nil
}

func (c *CachedFeed) store(ctx context.Context, prices map[string]float64) {
	if len(prices) == 0 {
		return
	}

	pipe := c.redis.Pipeline()
	for s, p := range prices {
		pipe.Set(ctx, cacheKey(s), strconv.FormatFloat(p, 'f', -1, 64), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("redis backfill failed", zap.Error(err))
	}
}

func cacheKey(symbol string) string {
	return cacheKeyPrefix + symbol
}

func decodePrice(v interface{}) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}
