// 文件: pkg/price/oracle.go
// 价格预言机 - 单次运行内的 ticker 价格缓存
//
// 【职责】
// 1. 缓存本次运行已经查到的价格 (无淘汰, 运行结束随 Close 释放)
// 2. 未命中的 ticker 映射成行情源 ID, 合并成一次批量请求
// 3. 查不到的 ticker 直接缺省, 调用方按 "价格未知" 处理

package price

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

// ErrOracleClosed Close 之后继续查询
var ErrOracleClosed = errors.New("price oracle closed")

// =============================================================================
// Oracle
// =============================================================================

// Oracle 运行级价格缓存
//
// 由 NewOracle 创建, Close 释放。缓存读多写少, 用 RWMutex 保护。
type Oracle struct {
	mu     sync.RWMutex
	feed   Feed
	cache  map[string]float64 // ticker -> price
	closed bool

	log *zap.Logger

	// 统计
	feedCalls int
}

// NewOracle 创建预言机
func NewOracle(feed Feed, log *zap.Logger) *Oracle {
	log = logger.OrNop(log)
	return &Oracle{
		feed:  feed,
		cache: make(map[string]float64),
		log:   log.Named("oracle"),
	}
}

// Prices 查询一组 ticker 的价格
//
// 已缓存的直接返回; 其余的映射成去重后的行情源 ID, 发起恰好一次批量请求,
// 查到的结果先写缓存再返回。行情源报错时返回已缓存部分、行情源给出的部分报价和错误。
func (o *Oracle) Prices(ctx context.Context, tickers []string) (map[string]float64, error) {
	// 1. 划分: 已缓存 / 待查询
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return nil, ErrOracleClosed
	}

	result := make(map[string]float64, len(tickers))
	remaining := make(map[string]string) // ticker -> feed symbol
	for _, t := range tickers {
		if p, ok := o.cache[t]; ok {
			result[t] = p
			continue
		}
		remaining[t] = FeedSymbol(t)
	}
	o.mu.RUnlock()

	if len(remaining) == 0 {
		return result, nil
	}

	// 2. 一次批量请求
	symbols := dedupe(remaining)
	o.log.Debug("fetching prices", zap.Strings("symbols", symbols))

	quotes, err := o.feed.Prices(ctx, symbols)

	o.mu.Lock()
	o.feedCalls++
	if o.closed {
		o.mu.Unlock()
		return nil, ErrOracleClosed
	}

	// 3. 回填缓存, 行情源报错时也保留它给出的部分报价
	var unresolved []string
	for ticker, sym := range remaining {
		p, ok := quotes[sym]
		if !ok {
			unresolved = append(unresolved, ticker)
			continue
		}
		o.cache[ticker] = p
		result[ticker] = p
	}
	o.mu.Unlock()

	if err != nil {
		return result, errors.Wrapf(err, "fetch %d symbols", len(symbols))
	}
	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		o.log.Debug("unresolved tickers", zap.Strings("tickers", unresolved))
	}

	return result, nil
}

// Price 单个 ticker 的缓存价格
func (o *Oracle) Price(ticker string) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	p, ok := o.cache[ticker]
	return p, ok
}

// Len 已缓存的 ticker 数
func (o *Oracle) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.cache)
}

// FeedCalls 已发起的行情源请求次数
func (o *Oracle) FeedCalls() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.feedCalls
}

// Close 丢弃缓存, 之后的查询返回 ErrOracleClosed
func (o *Oracle) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.cache = nil
}

// dedupe 取出去重排序后的行情源 ID
func dedupe(m map[string]string) []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, sym := range m {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
