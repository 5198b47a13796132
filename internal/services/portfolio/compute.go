package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/tradeclient/internal/models"
)

var hundred = decimal.NewFromInt(100)

// percentPlaces is the rounding applied to GainLossPercent.
const percentPlaces = 4

// Compute reduces balance, positions and last prices into a snapshot.
// Positions without a price are excluded from every sum and listed in Skipped.
func Compute(balance *models.Balance, positions []*models.Position, prices map[string]decimal.Decimal) *models.PortfolioSnapshot {
	cash := decimal.Zero
	if balance != nil {
		cash = balance.AvailableBalance
	}

	totalValue := cash
	totalGainLoss := decimal.Zero
	totalCost := decimal.Zero
	var holdings []models.HoldingValuation
	var skipped []string

	for _, p := range positions {
		if p == nil {
			continue
		}
		price, ok := prices[p.Symbol]
		if !ok {
			skipped = append(skipped, p.Symbol)
			continue
		}

		value := p.Quantity.Mul(price)
		cost := p.Quantity.Mul(p.AvgPrice)
		pl := value.Sub(cost)

		totalValue = totalValue.Add(value)
		totalGainLoss = totalGainLoss.Add(pl)
		totalCost = totalCost.Add(cost)

		holdings = append(holdings, models.HoldingValuation{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			AvgPrice:      p.AvgPrice,
			LastPrice:     price,
			PositionValue: value,
			CostBasis:     cost,
			ProfitLoss:    pl,
		})
	}

	pct := decimal.Zero
	if !totalCost.IsZero() {
		pct = totalGainLoss.Mul(hundred).DivRound(totalCost, percentPlaces)
	}

	return &models.PortfolioSnapshot{
		TotalValue:      totalValue,
		TotalGainLoss:   totalGainLoss,
		GainLossPercent: pct,
		CashBalance:     cash,
		Holdings:        holdings,
		Skipped:         skipped,
	}
}
