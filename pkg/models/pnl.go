package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PnLResult holds the marked-to-market figures of a position. Percent fields are
// ratios: 0.2 means 20%.
type PnLResult struct {
	CurrentPositionValue   decimal.Decimal `json:"currentPositionValue"`
	UnrealizedCost         decimal.Decimal `json:"unrealizedCost"`
	UnrealizedPnL          decimal.Decimal `json:"unrealizedPnL"`
	UnrealizedPnLInPercent decimal.Decimal `json:"unrealizedPnLInPercent"`
	RealizedGain           decimal.Decimal `json:"realizedGain"`
	RealizedCost           decimal.Decimal `json:"realizedCost"`
	RealizedPnL            decimal.Decimal `json:"realizedPnL"`
	RealizedPnLInPercent   decimal.Decimal `json:"realizedPnLInPercent"`
}

type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	Account   string    `json:"account"`
	Prices    Prices    `json:"prices"`
	Result    PnLResult `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewSnapshot(account string, prices Prices, result PnLResult) Snapshot {
	return Snapshot{
		ID:        uuid.New(),
		Account:   account,
		Prices:    prices,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
}
