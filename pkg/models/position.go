package models

import (
	"fmt"

	"github.com/gregtusar/squeeth/pkg/units"
	"github.com/shopspring/decimal"
)

// RawPosition is a position ledger record as the subgraph returns it. Amounts are
// base-10 integers in token base units: 18 decimals for ETH and oSQTH, 6 for the
// USDC-denominated unit costs and gains.
type RawPosition struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`

	CurrentOSQTHAmount string `json:"currentOSQTHAmount"`
	CurrentETHAmount   string `json:"currentETHAmount"`

	UnrealizedOSQTHUnitCost string `json:"unrealizedOSQTHUnitCost"`
	UnrealizedETHUnitCost   string `json:"unrealizedETHUnitCost"`

	RealizedOSQTHUnitCost string `json:"realizedOSQTHUnitCost"`
	RealizedETHUnitCost   string `json:"realizedETHUnitCost"`
	RealizedOSQTHUnitGain string `json:"realizedOSQTHUnitGain"`
	RealizedETHUnitGain   string `json:"realizedETHUnitGain"`
	RealizedOSQTHAmount   string `json:"realizedOSQTHAmount"`
	RealizedETHAmount     string `json:"realizedETHAmount"`
}

// Position is a ledger record in token units. Current amounts are signed net exposure.
type Position struct {
	Account string `json:"account"`

	CurrentOSQTHAmount decimal.Decimal `json:"currentOSQTHAmount"`
	CurrentETHAmount   decimal.Decimal `json:"currentETHAmount"`

	UnrealizedOSQTHUnitCost decimal.Decimal `json:"unrealizedOSQTHUnitCost"`
	UnrealizedETHUnitCost   decimal.Decimal `json:"unrealizedETHUnitCost"`

	RealizedOSQTHUnitCost decimal.Decimal `json:"realizedOSQTHUnitCost"`
	RealizedETHUnitCost   decimal.Decimal `json:"realizedETHUnitCost"`
	RealizedOSQTHUnitGain decimal.Decimal `json:"realizedOSQTHUnitGain"`
	RealizedETHUnitGain   decimal.Decimal `json:"realizedETHUnitGain"`
	RealizedOSQTHAmount   decimal.Decimal `json:"realizedOSQTHAmount"`
	RealizedETHAmount     decimal.Decimal `json:"realizedETHAmount"`
}

// Normalize converts the base-unit fields into token amounts.
func (r RawPosition) Normalize() (Position, error) {
	pos := Position{Account: r.Owner}
	if pos.Account == "" {
		pos.Account = r.ID
	}

	fields := []struct {
		name     string
		raw      string
		decimals int32
		dst      *decimal.Decimal
	}{
		{"currentOSQTHAmount", r.CurrentOSQTHAmount, units.OSQTHDecimals, &pos.CurrentOSQTHAmount},
		{"currentETHAmount", r.CurrentETHAmount, units.ETHDecimals, &pos.CurrentETHAmount},
		{"unrealizedOSQTHUnitCost", r.UnrealizedOSQTHUnitCost, units.USDCDecimals, &pos.UnrealizedOSQTHUnitCost},
		{"unrealizedETHUnitCost", r.UnrealizedETHUnitCost, units.USDCDecimals, &pos.UnrealizedETHUnitCost},
		{"realizedOSQTHUnitCost", r.RealizedOSQTHUnitCost, units.USDCDecimals, &pos.RealizedOSQTHUnitCost},
		{"realizedETHUnitCost", r.RealizedETHUnitCost, units.USDCDecimals, &pos.RealizedETHUnitCost},
		{"realizedOSQTHUnitGain", r.RealizedOSQTHUnitGain, units.USDCDecimals, &pos.RealizedOSQTHUnitGain},
		{"realizedETHUnitGain", r.RealizedETHUnitGain, units.USDCDecimals, &pos.RealizedETHUnitGain},
		{"realizedOSQTHAmount", r.RealizedOSQTHAmount, units.OSQTHDecimals, &pos.RealizedOSQTHAmount},
		{"realizedETHAmount", r.RealizedETHAmount, units.ETHDecimals, &pos.RealizedETHAmount},
	}

	for _, f := range fields {
		v, err := units.ParseTokenAmount(f.raw, f.decimals)
		if err != nil {
			return Position{}, fmt.Errorf("field %s: %w", f.name, err)
		}
		*f.dst = v
	}

	return pos, nil
}
