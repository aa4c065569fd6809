package portfolio

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestValueHoldings(t *testing.T) {
	holdings := []Holding{
		{CoinID: "bitcoin", Quantity: 0.5, AvgBuyPrice: 50000},
		{CoinID: "ethereum", Quantity: 10, AvgBuyPrice: 3000},
		{CoinID: "obscurecoin", Quantity: 100, AvgBuyPrice: 1},
	}
	prices := map[string]float64{
		"bitcoin":  60000,
		"ethereum": 2500,
	}

	valued := ValueHoldings(holdings, prices)

	if len(valued) != 2 {
		t.Fatalf("expected unpriced holding dropped, got %d valued", len(valued))
	}

	btc := valued[0]
	if btc.Value != 30000 || btc.Cost != 25000 || btc.Profit != 5000 {
		t.Errorf("bitcoin valuation wrong: value=%v cost=%v profit=%v", btc.Value, btc.Cost, btc.Profit)
	}
	if !almostEqual(btc.ProfitPct, 20) {
		t.Errorf("bitcoin profit pct = %v, want 20", btc.ProfitPct)
	}

	eth := valued[1]
	if eth.Profit != -5000 {
		t.Errorf("ethereum profit = %v, want -5000", eth.Profit)
	}
}

func TestValuate(t *testing.T) {
	tests := []struct {
		name   string
		valued []ValuedHolding
		want   Summary
	}{
		{
			name: "mixed profit and loss",
			valued: []ValuedHolding{
				{Value: 30000, Cost: 25000},
				{Value: 25000, Cost: 30000},
			},
			want: Summary{TotalValue: 55000, TotalCost: 55000, TotalProfit: 0, ProfitPercentage: 0, HoldingsCount: 2},
		},
		{
			name:   "empty portfolio",
			valued: nil,
			want:   Summary{},
		},
		{
			name: "zero cost yields zero profit percentage",
			valued: []ValuedHolding{
				{Value: 100, Cost: 0},
			},
			want: Summary{TotalValue: 100, TotalProfit: 100, ProfitPercentage: 0, HoldingsCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Valuate(tt.valued)
			if got != tt.want {
				t.Errorf("Valuate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAllocatePercentagesSumToHundred(t *testing.T) {
	valued := []ValuedHolding{
		{Holding: Holding{CoinID: "bitcoin"}, Value: 3333.33},
		{Holding: Holding{CoinID: "ethereum"}, Value: 3333.33},
		{Holding: Holding{CoinID: "solana"}, Value: 3333.34},
	}

	allocations := Allocate(valued)

	var total float64
	for _, a := range allocations {
		total += a.Percentage
	}
	if !almostEqual(total, 100) {
		t.Errorf("allocation percentages sum to %v, want 100", total)
	}
}

func TestAllocateZeroTotal(t *testing.T) {
	valued := []ValuedHolding{
		{Holding: Holding{CoinID: "bitcoin"}, Value: 0},
		{Holding: Holding{CoinID: "ethereum"}, Value: 0},
	}

	allocations := Allocate(valued)

	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	for _, a := range allocations {
		if a.Percentage != 0 {
			t.Errorf("%s percentage = %v, want 0 for worthless portfolio", a.CoinID, a.Percentage)
		}
	}
}
