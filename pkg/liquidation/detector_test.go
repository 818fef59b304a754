package liquidation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lens.com/pkg/model"
)

// staticPrices 固定价格源, 记录请求的 ticker
type staticPrices struct {
	prices map[string]float64
	err    error
	asked  [][]string
}

func (s *staticPrices) Prices(_ context.Context, tickers []string) (map[string]float64, error) {
	s.asked = append(s.asked, tickers)
	out := make(map[string]float64)
	for _, t := range tickers {
		if p, ok := s.prices[t]; ok {
			out[t] = p
		}
	}
	return out, s.err
}

func liqPos(asset string, liq float64) model.Position {
	return model.NewPosition(model.Position{
		Asset:       asset,
		Leverage:    10,
		Collateral:  100,
		PnL:         -5,
		Liquidation: &liq,
	})
}

func TestDetect_BoundaryInclusive(t *testing.T) {
	pop := model.Population{
		{ID: 7, URL: "https://venue/t/7", Positions: []model.Position{liqPos("BTC", 95)}},
	}
	src := &staticPrices{prices: map[string]float64{"BTC": 100}}

	d := NewDetector(5, nil)
	got, err := d.Detect(context.Background(), pop, src)
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, 5.0, r.DiffPercent)
	assert.Equal(t, 7, r.TraderID)
	assert.Equal(t, "https://venue/t/7", r.TraderURL)
	assert.Equal(t, 95.0, r.LiquidationPrice)
	assert.Equal(t, 100.0, r.LivePrice)
	assert.Equal(t, int64(1000), r.Size)
	assert.Equal(t, LevelWarning, r.Level)
}

func TestDetect_Filtering(t *testing.T) {
	noLiq := model.NewPosition(model.Position{Asset: "BTC", Leverage: 2, Collateral: 10})
	pop := model.Population{
		{ID: 0, Positions: []model.Position{
			liqPos("BTC", 99.5), // 0.5% 临界
			liqPos("BTC", 90),   // 10% 超出
			noLiq,               // 无强平价
		}},
		{ID: 1, Positions: []model.Position{
			liqPos("ETH", 102),  // 2% 危险
			liqPos("DOGE", 1.0), // 价格未知
		}},
	}
	src := &staticPrices{prices: map[string]float64{"BTC": 100, "ETH": 100}}

	got, err := (&Detector{Threshold: 5}).Detect(context.Background(), pop, src)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "BTC", got[0].Asset)
	assert.Equal(t, LevelCritical, got[0].Level)
	assert.Equal(t, "ETH", got[1].Asset)
	assert.Equal(t, 1, got[1].TraderID)
	assert.Equal(t, LevelDanger, got[1].Level)

	// 一次查询, 资产去重排序
	require.Len(t, src.asked, 1)
	assert.Equal(t, []string{"BTC", "DOGE", "ETH"}, src.asked[0])
}

func TestDetect_DefaultThreshold(t *testing.T) {
	pop := model.Population{{Positions: []model.Position{liqPos("BTC", 104)}}}
	src := &staticPrices{prices: map[string]float64{"BTC": 100}}

	got, err := (&Detector{}).Detect(context.Background(), pop, src)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDetect_SourceErrorKeepsPartialResults(t *testing.T) {
	pop := model.Population{{Positions: []model.Position{liqPos("BTC", 99)}}}
	boom := errors.New("feed down")
	src := &staticPrices{prices: map[string]float64{"BTC": 100}, err: boom}

	got, err := NewDetector(5, nil).Detect(context.Background(), pop, src)
	require.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestDetect_NoPositions(t *testing.T) {
	src := &staticPrices{}

	got, err := NewDetector(5, nil).Detect(context.Background(), model.Population{{ID: 0}}, src)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, src.asked)
}

func TestScan_UsesGivenPrices(t *testing.T) {
	pop := model.Population{
		{ID: 0, Positions: []model.Position{liqPos("BTC", 98), liqPos("ETH", 2990)}},
	}

	d := &Detector{} // 零值使用默认阈值
	got := d.Scan(pop, map[string]float64{"BTC": 100})
	require.Len(t, got, 1)
	assert.Equal(t, "BTC", got[0].Asset)
	assert.Equal(t, LevelDanger, got[0].Level)

	assert.Empty(t, d.Scan(pop, nil))
}
