package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Symbol string

const (
	SymbolETH   Symbol = "ETH-USD"
	SymbolOSQTH Symbol = "OSQTH-USD"
)

type Quote struct {
	Symbol    Symbol          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// Prices are the quotes a position is marked against.
type Prices struct {
	OSQTH decimal.Decimal `json:"osqth"`
	ETH   decimal.Decimal `json:"eth"`
}

// Complete reports whether both prices are set.
func (p Prices) Complete() bool {
	return p.OSQTH.IsPositive() && p.ETH.IsPositive()
}
