// 文件: pkg/analytics/tables.go
// 按资产汇总: 持仓统计 / 挂单分布
//
// 表按资产首次出现的顺序排列, Sorted() 返回展示用的排序副本。

package analytics

import (
	"sort"

	"lens.com/pkg/model"
)

// =============================================================================
// 持仓
// =============================================================================

// AssetStats 单个资产的持仓统计
type AssetStats struct {
	Asset        string  `json:"asset"`
	Longs        int     `json:"longs"`
	Shorts       int     `json:"shorts"`
	Positions    int     `json:"positions"`
	MeanLeverage float64 `json:"mean_leverage"`
	MeanPnL      float64 `json:"mean_pnl"`
}

// AssetTable 全部资产的持仓统计
type AssetTable []AssetStats

// Assets 按资产统计持仓, 跳过 model.UnknownAsset
func Assets(pop model.Population) AssetTable {
	index := make(map[string]int)
	table := AssetTable{}
	lev := []float64{}
	pnl := []float64{}

	for i := range pop {
		for _, p := range pop[i].Positions {
			if p.Asset == model.UnknownAsset {
				continue
			}
			k, ok := index[p.Asset]
			if !ok {
				k = len(table)
				index[p.Asset] = k
				table = append(table, AssetStats{Asset: p.Asset})
				lev = append(lev, 0)
				pnl = append(pnl, 0)
			}

			row := &table[k]
			row.Positions++
			if p.Short {
				row.Shorts++
			} else {
				row.Longs++
			}
			lev[k] += p.Leverage
			pnl[k] += p.PnL
		}
	}

	for k := range table {
		n := float64(table[k].Positions)
		table[k].MeanLeverage = lev[k] / n
		table[k].MeanPnL = pnl[k] / n
	}
	return table
}

// Lookup 查找单个资产
func (t AssetTable) Lookup(asset string) (AssetStats, bool) {
	for _, s := range t {
		if s.Asset == asset {
			return s, true
		}
	}
	return AssetStats{}, false
}

// Sorted 按平均盈亏降序
func (t AssetTable) Sorted() AssetTable {
	out := append(AssetTable(nil), t...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MeanPnL > out[j].MeanPnL
	})
	return out
}

// =============================================================================
// 挂单
// =============================================================================

// OrderStats 单个资产的挂单分布
type OrderStats struct {
	Asset  string        `json:"asset"`
	Longs  int           `json:"longs"`
	Shorts int           `json:"shorts"`
	Orders []model.Order `json:"orders"`
}

// Count 挂单总数
func (s OrderStats) Count() int {
	return len(s.Orders)
}

// OrderTable 全部资产的挂单分布
type OrderTable []OrderStats

// PendingOrders 按资产统计挂单, 不跳过任何资产
func PendingOrders(pop model.Population) OrderTable {
	index := make(map[string]int)
	table := OrderTable{}

	for i := range pop {
		for _, o := range pop[i].Orders {
			k, ok := index[o.Asset]
			if !ok {
				k = len(table)
				index[o.Asset] = k
				table = append(table, OrderStats{Asset: o.Asset})
			}

			row := &table[k]
			row.Orders = append(row.Orders, o)
			if o.Short {
				row.Shorts++
			} else {
				row.Longs++
			}
		}
	}
	return table
}

// Lookup 查找单个资产
func (t OrderTable) Lookup(asset string) (OrderStats, bool) {
	for _, s := range t {
		if s.Asset == asset {
			return s, true
		}
	}
	return OrderStats{}, false
}

// Sorted 按挂单数降序
func (t OrderTable) Sorted() OrderTable {
	out := append(OrderTable(nil), t...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count() > out[j].Count()
	})
	return out
}
