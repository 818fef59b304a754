// 文件: pkg/analytics/distribution.go
// 杠杆 / 盈亏 / 保证金分布
//
// 空集合统一返回 (零值, false), 不返回错误。

package analytics

import (
	"sort"

	"lens.com/pkg/model"
)

// MaxLeverage 杠杆统计的去噪上限, 超过的读数视为异常值
const MaxLeverage = 50.0

// LeverageStats 杠杆分布
type LeverageStats struct {
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Leverage 只统计 leverage <= MaxLeverage 的持仓
func Leverage(pop model.Population) (LeverageStats, bool) {
	var s LeverageStats
	var sum float64
	for i := range pop {
		for _, p := range pop[i].Positions {
			if p.Leverage > MaxLeverage {
				continue
			}
			if s.Count == 0 || p.Leverage > s.Max {
				s.Max = p.Leverage
			}
			sum += p.Leverage
			s.Count++
		}
	}
	if s.Count == 0 {
		return LeverageStats{}, false
	}
	s.Mean = sum / float64(s.Count)
	return s, true
}

// PnLStats 盈亏分布
type PnLStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Variance float64 `json:"variance"` // 总体方差
	Count    int     `json:"count"`
}

// PnL 统计全部持仓, 不做杠杆过滤
func PnL(pop model.Population) (PnLStats, bool) {
	values := make([]float64, 0, pop.PositionCount())
	for i := range pop {
		for _, p := range pop[i].Positions {
			values = append(values, p.PnL)
		}
	}
	if len(values) == 0 {
		return PnLStats{}, false
	}

	mean := meanOf(values)

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	return PnLStats{
		Mean:     mean,
		Median:   medianOf(values),
		Variance: sq / float64(len(values)),
		Count:    len(values),
	}, true
}

// CollateralStats 保证金分布
type CollateralStats struct {
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// Collateral 统计全部持仓
func Collateral(pop model.Population) (CollateralStats, bool) {
	var s CollateralStats
	for i := range pop {
		for _, p := range pop[i].Positions {
			s.Total += p.Collateral
			s.Count++
		}
	}
	if s.Count == 0 {
		return CollateralStats{}, false
	}
	s.Mean = s.Total / float64(s.Count)
	return s, true
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// medianOf 偶数个取中间两个的平均, 不修改入参
func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
