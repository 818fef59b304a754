package liquidation

import "fmt"

// =============================================================================
// 接近程度等级
// =============================================================================

// ProximityLevel 强平价距离现价的接近程度
//
// 只对已经落入阈值内的持仓分级:
// - 预警区: 距离 > 2.5%
// - 危险区: 1% < 距离 <= 2.5%
// - 临界区: 距离 <= 1%, 小幅波动即可触发强平
type ProximityLevel int

const (
	// LevelWarning 预警区
	LevelWarning ProximityLevel = iota

	// LevelDanger 危险区
	LevelDanger

	// LevelCritical 临界区
	LevelCritical
)

// String 返回等级的字符串表示（用于日志打印）
func (l ProximityLevel) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelDanger:
		return "DANGER"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText 序列化为等级名
func (l ProximityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText 从等级名解析
func (l *ProximityLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "WARNING":
		*l = LevelWarning
	case "DANGER":
		*l = LevelDanger
	case "CRITICAL":
		*l = LevelCritical
	default:
		return fmt.Errorf("unknown proximity level %q", text)
	}
	return nil
}

// =============================================================================
// 阈值常量 (百分比)
// =============================================================================

const (
	// ThresholdCritical 临界阈值: 1%
	ThresholdCritical = 1.0

	// ThresholdDanger 危险阈值: 2.5%
	ThresholdDanger = 2.5

	// DefaultThreshold 默认入选阈值: 5% (含边界)
	DefaultThreshold = 5.0
)

// Classify 根据距离百分比计算等级
func Classify(diffPercent float64) ProximityLevel {
	switch {
	case diffPercent <= ThresholdCritical:
		return LevelCritical
	case diffPercent <= ThresholdDanger:
		return LevelDanger
	default:
		return LevelWarning
	}
}

// =============================================================================
// 风险记录
// =============================================================================

// RiskRecord 一笔接近强平的持仓
type RiskRecord struct {
	TraderID   int     `json:"trader_id"`
	TraderURL  string  `json:"trader_url"`
	Asset      string  `json:"asset"`
	Leverage   float64 `json:"leverage"`
	Size       int64   `json:"size"`
	PnL        float64 `json:"pnl"`
	Collateral float64 `json:"collateral"`

	LiquidationPrice float64 `json:"liq_price"`
	LivePrice        float64 `json:"current_price"`

	// DiffPercent = |liq - live| / live * 100
	DiffPercent float64 `json:"difference_percent"`

	Level ProximityLevel `json:"level"`
}
