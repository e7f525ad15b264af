// Package payoff builds hypothetical return curves for squeeth strategies over a sweep
// of future ETH prices.
//
// Funding is modelled through the normalization factor: with the squeeth mark trading
// at markRatio times its index, the protocol targets a daily decay of
// exp(-ln(markRatio)/17.5), so after d days a short position owes nf = dailyNF^d of
// its original squeeth debt.
package payoff

import (
	"errors"
	"fmt"
	"math"
)

const (
	// FundingPeriodDays is the funding period the protocol targets.
	FundingPeriodDays = 17.5

	DefaultPoints = 120
	DefaultStep   = 30.0
	MaxPoints     = 1000
)

// DayOffsets are the horizons each chart is drawn for.
var DayOffsets = []int{0, 1, 14, 28}

var ErrInvalidParams = errors.New("invalid payoff parameters")

// Params describe the market a curve is drawn for.
type Params struct {
	// EthPrice is the current ETH spot price.
	EthPrice float64
	// CollatRatio is collateral per unit of minted squeeth, relative to ETH spot.
	CollatRatio float64
	// Mark and Index are the squeeth mark and index prices; Index defaults to EthPrice^2
	// and Mark to MarkIndexRatio*Index.
	Mark  float64
	Index float64
	// MarkIndexRatio is only used when Mark is unset; zero means 1.
	MarkIndexRatio float64
	// SqueethMark is the value of the minted squeeth; defaults to markRatio*EthPrice^2.
	SqueethMark float64
	// Points and Step define the sweep; zero means DefaultPoints and DefaultStep.
	Points int
	Step   float64
}

func (p Params) withDefaults() Params {
	if p.Index == 0 {
		p.Index = p.EthPrice * p.EthPrice
	}
	if p.Mark == 0 {
		ratio := p.MarkIndexRatio
		if ratio == 0 {
			ratio = 1
		}
		p.Mark = ratio * p.Index
	}
	if p.Points == 0 {
		p.Points = DefaultPoints
	}
	if p.Step == 0 {
		p.Step = DefaultStep
	}
	return p
}

func (p Params) validate() error {
	switch {
	case !finitePositive(p.EthPrice):
		return fmt.Errorf("%w: eth price must be positive and finite, got %v", ErrInvalidParams, p.EthPrice)
	case !finitePositive(p.Mark) || !finitePositive(p.Index):
		return fmt.Errorf("%w: mark and index must be positive and finite, got %v/%v", ErrInvalidParams, p.Mark, p.Index)
	case p.Points < 1 || p.Points > MaxPoints:
		return fmt.Errorf("%w: points must be within 1..%d, got %d", ErrInvalidParams, MaxPoints, p.Points)
	case !finitePositive(p.Step):
		return fmt.Errorf("%w: step must be positive and finite, got %v", ErrInvalidParams, p.Step)
	case math.IsNaN(p.CollatRatio) || math.IsInf(p.CollatRatio, 0):
		return fmt.Errorf("%w: collateral ratio must be finite, got %v", ErrInvalidParams, p.CollatRatio)
	case math.IsNaN(p.SqueethMark) || math.IsInf(p.SqueethMark, 0):
		return fmt.Errorf("%w: squeeth mark must be finite, got %v", ErrInvalidParams, p.SqueethMark)
	}

	// Every term of the curves is bounded by the collateral-scaled square of the top price.
	top := p.EthPrice/2 + float64(p.Points-1)*p.Step
	if bound := top * math.Max(top, p.EthPrice) * math.Max(1, math.Abs(p.CollatRatio)) * math.Max(1, p.Mark/p.Index); math.IsInf(bound, 0) {
		return fmt.Errorf("%w: prices up to %v overflow", ErrInvalidParams, top)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// MarkRatio returns mark/index.
func MarkRatio(mark, index float64) float64 {
	return mark / index
}

// DailyNormFactor returns the per-day normalization factor decay implied by markRatio.
func DailyNormFactor(markRatio float64) float64 {
	return math.Exp(-math.Log(markRatio) / FundingPeriodDays)
}

// NormFactorAfter returns the cumulative normalization factor after days.
func NormFactorAfter(dailyNormFactor float64, days int) float64 {
	return math.Pow(dailyNormFactor, float64(days))
}

// PriceRange returns points prices starting at spot/2 and spaced by step.
func PriceRange(spot, step float64, points int) []float64 {
	prices := make([]float64, points)
	for i := range prices {
		prices[i] = spot/2 + float64(i)*step
	}
	return prices
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
