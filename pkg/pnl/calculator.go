// Package pnl marks squeeth position ledgers to market.
//
// Ledgers carry weighted-average unit costs for the open position and unit cost and
// gain for the closed part. Multiplying those by the matching amounts and comparing
// against the current quotes yields unrealized and realized PnL.
package pnl

import (
	"fmt"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/units"
	"github.com/shopspring/decimal"
)

// Calculate marks pos against prices.
func Calculate(pos models.Position, prices models.Prices) models.PnLResult {
	currentValue := prices.OSQTH.Mul(pos.CurrentOSQTHAmount).
		Add(prices.ETH.Mul(pos.CurrentETHAmount))
	unrealizedCost := pos.UnrealizedOSQTHUnitCost.Mul(pos.CurrentOSQTHAmount).
		Add(pos.UnrealizedETHUnitCost.Mul(pos.CurrentETHAmount))
	unrealizedPnL := currentValue.Sub(unrealizedCost)

	realizedGain := pos.RealizedOSQTHUnitGain.Mul(pos.RealizedOSQTHAmount).
		Add(pos.RealizedETHUnitGain.Mul(pos.RealizedETHAmount))
	realizedCost := pos.RealizedOSQTHUnitCost.Mul(pos.RealizedOSQTHAmount).
		Add(pos.RealizedETHUnitCost.Mul(pos.RealizedETHAmount))
	realizedPnL := realizedGain.Sub(realizedCost)

	return models.PnLResult{
		CurrentPositionValue:   currentValue,
		UnrealizedCost:         unrealizedCost,
		UnrealizedPnL:          unrealizedPnL,
		UnrealizedPnLInPercent: percentOf(unrealizedPnL, unrealizedCost),
		RealizedGain:           realizedGain,
		RealizedCost:           realizedCost,
		RealizedPnL:            realizedPnL,
		RealizedPnLInPercent:   percentOf(realizedPnL, realizedCost),
	}
}

// CalculateRaw normalizes a subgraph record and marks it against prices.
func CalculateRaw(raw models.RawPosition, prices models.Prices) (models.PnLResult, error) {
	pos, err := raw.Normalize()
	if err != nil {
		return models.PnLResult{}, fmt.Errorf("normalize position %s: %w", raw.ID, err)
	}
	return Calculate(pos, prices), nil
}

// A zero cost basis means nothing was paid yet, so the ratio is reported as zero.
func percentOf(pnl, cost decimal.Decimal) decimal.Decimal {
	return units.SafeDiv(pnl, cost)
}
