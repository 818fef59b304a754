// 文件: pkg/price/feed.go
// 行情源边界
//
// 请求: 一组行情源 ID
// 响应: ID -> 美元价格; 查不到的 ID 直接缺省, 不算错误

package price

import "context"

// Feed 外部行情源
type Feed interface {
	Prices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// FeedFunc 函数适配器
type FeedFunc func(ctx context.Context, symbols []string) (map[string]float64, error)

// Prices 实现 Feed
func (f FeedFunc) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	return f(ctx, symbols)
}
