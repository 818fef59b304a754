// 文件: pkg/analytics/ratio.go
// 多空比

package analytics

import (
	"math"
	"strconv"

	"lens.com/pkg/model"
)

// Ratio 比值, 分母为 0 时为 +Inf
//
// JSON 不支持无穷大, 序列化为字符串 "+Inf"。
type Ratio float64

// Inf 分母为 0 的比值
var Inf = Ratio(math.Inf(1))

// IsInf 是否为 +Inf
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}

// MarshalJSON 实现 json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return []byte(`"+Inf"`), nil
	}
	return strconv.AppendFloat(nil, float64(r), 'f', -1, 64), nil
}

// UnmarshalJSON 实现 json.Unmarshaler
func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == `"+Inf"` {
		*r = Inf
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

func ratio(num, den float64) Ratio {
	if den == 0 {
		return Inf
	}
	return Ratio(num / den)
}

// =============================================================================
// LongShort
// =============================================================================

// LongShortStats 多空持仓数量与规模
type LongShortStats struct {
	LongCount  int   `json:"long_count"`
	ShortCount int   `json:"short_count"`
	LongSize   int64 `json:"long_size"`
	ShortSize  int64 `json:"short_size"`

	CountRatio Ratio `json:"count_ratio"` // LongCount / ShortCount
	SizeRatio  Ratio `json:"size_ratio"`  // LongSize / ShortSize
}

// LongShort 按方向统计全部持仓
func LongShort(pop model.Population) LongShortStats {
	var s LongShortStats
	for i := range pop {
		for _, p := range pop[i].Positions {
			if p.Short {
				s.ShortCount++
				s.ShortSize += p.Size
			} else {
				s.LongCount++
				s.LongSize += p.Size
			}
		}
	}

	s.CountRatio = ratio(float64(s.LongCount), float64(s.ShortCount))
	s.SizeRatio = ratio(float64(s.LongSize), float64(s.ShortSize))
	return s
}
