package portfolio

// Valuation formulas live here and nowhere else. Every call site that needs
// value, cost, profit or allocation figures goes through these functions so
// the arithmetic cannot drift between views.

// ValueHoldings joins holdings with current prices. A holding whose coin
// has no price is dropped rather than aborting the pass; the rest of the
// portfolio still values correctly.
func ValueHoldings(holdings []Holding, prices map[string]float64) []ValuedHolding {
	valued := make([]ValuedHolding, 0, len(holdings))
	for _, h := range holdings {
		price, ok := prices[h.CoinID]
		if !ok {
			continue
		}

		value := h.Quantity * price
		cost := h.Quantity * h.AvgBuyPrice
		profit := value - cost
		profitPct := 0.0
		if cost > 0 {
			profitPct = profit / cost * 100
		}

		valued = append(valued, ValuedHolding{
			Holding:      h,
			CurrentPrice: price,
			Value:        value,
			Cost:         cost,
			Profit:       profit,
			ProfitPct:    profitPct,
		})
	}
	return valued
}

// Valuate aggregates a valued holding set into a portfolio summary.
// ProfitPercentage is 0 whenever TotalCost is 0, regardless of value.
func Valuate(valued []ValuedHolding) Summary {
	var s Summary
	for _, v := range valued {
		s.TotalValue += v.Value
		s.TotalCost += v.Cost
	}
	s.TotalProfit = s.TotalValue - s.TotalCost
	if s.TotalCost > 0 {
		s.ProfitPercentage = s.TotalProfit / s.TotalCost * 100
	}
	s.HoldingsCount = len(valued)
	return s
}

// Allocate computes each holding's share of total portfolio value. Full
// precision is carried into the division; nothing is rounded before the
// percentage arithmetic. When total value is 0 every percentage is 0.
func Allocate(valued []ValuedHolding) []AssetAllocation {
	var total float64
	for _, v := range valued {
		total += v.Value
	}

	allocations := make([]AssetAllocation, 0, len(valued))
	for _, v := range valued {
		pct := 0.0
		if total > 0 {
			pct = v.Value / total * 100
		}
		allocations = append(allocations, AssetAllocation{
			CoinID:     v.CoinID,
			Name:       v.Name,
			Symbol:     v.Symbol,
			Value:      v.Value,
			Percentage: pct,
		})
	}
	return allocations
}
