package models

import "github.com/shopspring/decimal"

// Balance is the cash ledger balance.
type Balance struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency,omitempty"`
}

// Position is an open holding as reported by the backend.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// Quote is the latest traded price of a symbol.
type Quote struct {
	Symbol    string          `json:"symbol,omitempty"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// HoldingValuation is a position priced at its latest quote.
type HoldingValuation struct {
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
	PositionValue decimal.Decimal `json:"position_value"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
}

// PortfolioSnapshot is one consistent valuation of the account.
// Sums cover priced holdings only; Skipped lists symbols whose quote failed.
type PortfolioSnapshot struct {
	TotalValue      decimal.Decimal    `json:"total_value"`
	TotalGainLoss   decimal.Decimal    `json:"total_gain_loss"`
	GainLossPercent decimal.Decimal    `json:"gain_loss_percent"`
	CashBalance     decimal.Decimal    `json:"cash_balance"`
	Holdings        []HoldingValuation `json:"holdings,omitempty"`
	Skipped         []string           `json:"skipped,omitempty"`
}

// Equal reports whether two snapshots carry the same figures, comparing
// decimals by value rather than representation.
func (s *PortfolioSnapshot) Equal(o *PortfolioSnapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !s.TotalValue.Equal(o.TotalValue) ||
		!s.TotalGainLoss.Equal(o.TotalGainLoss) ||
		!s.GainLossPercent.Equal(o.GainLossPercent) ||
		!s.CashBalance.Equal(o.CashBalance) {
		return false
	}
	if len(s.Holdings) != len(o.Holdings) || len(s.Skipped) != len(o.Skipped) {
		return false
	}
	for i := range s.Holdings {
		a, b := s.Holdings[i], o.Holdings[i]
		if a.Symbol != b.Symbol ||
			!a.Quantity.Equal(b.Quantity) ||
			!a.AvgPrice.Equal(b.AvgPrice) ||
			!a.LastPrice.Equal(b.LastPrice) ||
			!a.PositionValue.Equal(b.PositionValue) ||
			!a.CostBasis.Equal(b.CostBasis) ||
			!a.ProfitLoss.Equal(b.ProfitLoss) {
			return false
		}
	}
	for i := range s.Skipped {
		if s.Skipped[i] != o.Skipped[i] {
			return false
		}
	}
	return true
}
