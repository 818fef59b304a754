// 文件: pkg/analytics/ranking.go
// 交易员排行
//
// 排序均为稳定排序: 分数相同的交易员保持采集顺序。

package analytics

import (
	"sort"

	"lens.com/pkg/model"
)

// DefaultTopN 排行默认条数
const DefaultTopN = 10

// TraderPnL 按总盈亏排行的一项
type TraderPnL struct {
	TraderID int     `json:"trader_id"`
	URL      string  `json:"url"`
	PnL      float64 `json:"pnl"`
}

// TraderSize 按最大单笔仓位排行的一项
type TraderSize struct {
	TraderID int    `json:"trader_id"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// TraderLeverage 按最大杠杆排行的一项
type TraderLeverage struct {
	TraderID int     `json:"trader_id"`
	URL      string  `json:"url"`
	Leverage float64 `json:"leverage"`
}

// TopTraders 总盈亏排行
//
// profitable 为 true 时降序 (最赚钱在前), 否则升序 (亏损最多在前)。
func TopTraders(pop model.Population, profitable bool, n int) []TraderPnL {
	out := make([]TraderPnL, 0, len(pop))
	for i := range pop {
		t := &pop[i]
		out = append(out, TraderPnL{TraderID: t.ID, URL: t.URL, PnL: t.TotalPnL()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if profitable {
			return out[i].PnL > out[j].PnL
		}
		return out[i].PnL < out[j].PnL
	})
	return out[:limit(len(out), n)]
}

// LargestHolders 最大单笔仓位排行, 无持仓的交易员记为 0
func LargestHolders(pop model.Population, n int) []TraderSize {
	out := make([]TraderSize, 0, len(pop))
	for i := range pop {
		t := &pop[i]
		var largest int64
		for j, p := range t.Positions {
			if j == 0 || p.Size > largest {
				largest = p.Size
			}
		}
		out = append(out, TraderSize{TraderID: t.ID, URL: t.URL, Size: largest})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Size > out[j].Size
	})
	return out[:limit(len(out), n)]
}

// TopLeveraged 最大杠杆排行
//
// 只看 leverage <= MaxLeverage 的持仓; 没有这类持仓的交易员不参与排行。
func TopLeveraged(pop model.Population, n int) []TraderLeverage {
	out := make([]TraderLeverage, 0, len(pop))
	for i := range pop {
		t := &pop[i]
		best, ok := 0.0, false
		for _, p := range t.Positions {
			if p.Leverage > MaxLeverage {
				continue
			}
			if !ok || p.Leverage > best {
				best, ok = p.Leverage, true
			}
		}
		if !ok {
			continue
		}
		out = append(out, TraderLeverage{TraderID: t.ID, URL: t.URL, Leverage: best})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Leverage > out[j].Leverage
	})
	return out[:limit(len(out), n)]
}

func limit(size, n int) int {
	if n <= 0 {
		n = DefaultTopN
	}
	if n > size {
		return size
	}
	return n
}
