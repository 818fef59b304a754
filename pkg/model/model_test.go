package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Position 测试
// =============================================================================

func TestNewPosition_SizeInvariant(t *testing.T) {
	tests := []struct {
		name       string
		collateral float64
		leverage   float64
	}{
		{"整数", 100, 10},
		{"小数", 1234.56, 10.5},
		{"截断", 99.99, 1.0},
		{"高杠杆", 250.75, 75.25},
		{"零保证金", 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPosition(Position{Collateral: tt.collateral, Leverage: tt.leverage})
			want := int64(math.Floor(tt.collateral * tt.leverage))
			if p.Size != want {
				t.Errorf("Size = %d, want %d", p.Size, want)
			}
		})
	}
}

func TestNewPosition_IgnoresGivenSize(t *testing.T) {
	p := NewPosition(Position{Collateral: 10, Leverage: 2, Size: 999})
	assert.Equal(t, int64(20), p.Size)
}

func TestNewPosition_CopiesLiquidation(t *testing.T) {
	liq := 95.0
	p := NewPosition(Position{Collateral: 1, Leverage: 1, Liquidation: &liq})

	liq = 1
	got, ok := p.LiquidationPrice()
	require.True(t, ok)
	assert.Equal(t, 95.0, got)
}

func TestPosition_NoLiquidation(t *testing.T) {
	p := NewPosition(Position{Collateral: 1, Leverage: 1})
	_, ok := p.LiquidationPrice()
	assert.False(t, ok)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, "Short", Position{Short: true}.Direction())
	assert.Equal(t, "Long", Position{}.Direction())
	assert.Equal(t, "Short", Order{Short: true}.Direction())
	assert.Equal(t, "Long", Order{}.Direction())
}

// =============================================================================
// Book 测试
// =============================================================================

func TestBook_SequentialIDs(t *testing.T) {
	b := NewBook()

	for i, url := range []string{"a", "b", "c"} {
		id, err := b.Add(url, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}

	pop := b.Population()
	require.Len(t, pop, 3)
	assert.Equal(t, "c", pop[2].URL)
	assert.Equal(t, 2, pop[2].ID)
}

func TestBook_SealedAfterPopulation(t *testing.T) {
	b := NewBook()
	_, _ = b.Add("a", nil, nil)
	_ = b.Population()

	_, err := b.Add("b", nil, nil)
	require.ErrorIs(t, err, ErrBookSealed)
	assert.Equal(t, 1, b.Len())
}

func TestBook_CopiesSlices(t *testing.T) {
	b := NewBook()
	positions := []Position{NewPosition(Position{Asset: "BTC", Collateral: 1, Leverage: 1})}
	_, _ = b.Add("a", positions, nil)

	positions[0].Asset = "ETH"
	assert.Equal(t, "BTC", b.Population()[0].Positions[0].Asset)
}

func TestPopulation_Helpers(t *testing.T) {
	pop := Population{
		{ID: 0, Positions: []Position{{Asset: "ETH", PnL: 10}, {Asset: "BTC", PnL: -4}}, Orders: []Order{{Asset: "BTC"}}},
		{ID: 1, Positions: []Position{{Asset: "BTC", PnL: 1}}},
	}

	assert.Equal(t, 3, pop.PositionCount())
	assert.Equal(t, 1, pop.OrderCount())
	assert.Equal(t, []string{"BTC", "ETH"}, pop.AssetsInUse())
	assert.Equal(t, 6.0, pop[0].TotalPnL())
}
