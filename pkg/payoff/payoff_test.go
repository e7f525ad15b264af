package payoff

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spot = 1800.0

func baseParams() Params {
	return Params{
		EthPrice:    spot,
		CollatRatio: 1.5,
		Mark:        1.01 * spot * spot,
		Index:       spot * spot,
	}
}

func TestDailyNormFactor(t *testing.T) {
	assert.Equal(t, 1.0, DailyNormFactor(1))
	assert.Less(t, DailyNormFactor(1.05), 1.0)
	assert.Greater(t, DailyNormFactor(0.95), 1.0)

	// A full funding period of decay undoes the premium.
	assert.InDelta(t, 1/1.05, math.Pow(DailyNormFactor(1.05), FundingPeriodDays), 1e-12)
	assert.InDelta(t, math.Pow(DailyNormFactor(1.05), 14), NormFactorAfter(DailyNormFactor(1.05), 14), 1e-15)
}

func TestPriceRange(t *testing.T) {
	prices := PriceRange(spot, DefaultStep, DefaultPoints)
	require.Len(t, prices, 120)
	assert.Equal(t, 900.0, prices[0])
	assert.Equal(t, 930.0, prices[1])
	assert.Equal(t, 4470.0, prices[119])
	assert.Equal(t, spot, prices[30])
}

func TestShortCurve(t *testing.T) {
	curve, err := Short(baseParams())
	require.NoError(t, err)

	assert.InDelta(t, 1.01, curve.MarkRatio, 1e-12)
	assert.Equal(t, 2700.0, curve.InitialCollateral)
	assert.InDelta(t, 0.49*spot*spot, curve.DepositValue, 1e-6)
	require.Len(t, curve.Series, len(DayOffsets))
	assert.True(t, curve.Finite())

	for i, s := range curve.Series {
		assert.Equal(t, DayOffsets[i], s.Days)
		assert.InDelta(t, NormFactorAfter(curve.DailyNormFactor, s.Days), s.NormFactor, 1e-15)
		require.Len(t, s.Points, DefaultPoints)

		atSpot := s.Points[30]
		assert.Equal(t, spot, atSpot.Price)
		assert.False(t, math.IsNaN(atSpot.Percent) || math.IsInf(atSpot.Percent, 0))
	}

	// No funding accrued yet: breakeven at spot.
	assert.Equal(t, 0.0, curve.Series[0].Points[30].Percent)
	// Funding accrues to the short as time passes.
	assert.Greater(t, curve.Series[1].Points[30].Percent, 0.0)
	assert.Greater(t, curve.Series[3].Points[30].Percent, curve.Series[2].Points[30].Percent)
}

func TestShortPercentRoundsToCents(t *testing.T) {
	v := ShortPercent(1, 1000, 1, 1.5*1800, 1587600)
	assert.Equal(t, math.Round(v*100)/100, v)
}

func TestShortZeroDepositPropagatesNonFinite(t *testing.T) {
	p := baseParams()
	p.Mark = p.Index
	p.CollatRatio = 1

	curve, err := Short(p)
	require.NoError(t, err)

	assert.Equal(t, 0.0, curve.DepositValue)
	assert.False(t, curve.Finite())
	assert.True(t, math.IsNaN(curve.Series[0].Points[30].Percent))
	assert.True(t, math.IsInf(curve.Series[0].Points[0].Percent, 0))
}

func TestShortExplicitSqueethMark(t *testing.T) {
	p := baseParams()
	p.SqueethMark = 1e6

	curve, err := Short(p)
	require.NoError(t, err)
	assert.InDelta(t, 2700*spot-1e6, curve.DepositValue, 1e-9)
}

func TestShortInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero eth price", func(p *Params) { p.EthPrice = 0 }},
		{"negative mark", func(p *Params) { p.Mark = -1 }},
		{"too many points", func(p *Params) { p.Points = MaxPoints + 1 }},
		{"negative points", func(p *Params) { p.Points = -3 }},
		{"negative step", func(p *Params) { p.Step = -30 }},
		{"nan collateral", func(p *Params) { p.CollatRatio = math.NaN() }},
		{"infinite step", func(p *Params) { p.Step = math.Inf(1) }},
		{"infinite eth price", func(p *Params) { p.EthPrice = math.Inf(1) }},
		{"nan eth price", func(p *Params) { p.EthPrice = math.NaN() }},
		{"squared price overflows", func(p *Params) { p.EthPrice, p.Index, p.Mark = 1e300, 1, 1 }},
		{"top of sweep overflows", func(p *Params) { p.Step = 1e200 }},
		{"infinite mark", func(p *Params) { p.Mark = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.modify(&p)
			_, err := Short(p)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestShortDefaultsIndex(t *testing.T) {
	p := baseParams()
	p.Index = 0

	curve, err := Short(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.01, curve.MarkRatio, 1e-12)
}

func TestShortDefaultsMarkToIndex(t *testing.T) {
	curve, err := Short(Params{EthPrice: spot, CollatRatio: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, curve.MarkRatio)
	assert.Equal(t, 1.0, curve.DailyNormFactor)
	assert.True(t, curve.Finite())

	curve, err = Short(Params{EthPrice: spot, CollatRatio: 1.5, MarkIndexRatio: 1.01})
	require.NoError(t, err)
	assert.InDelta(t, 1.01, curve.MarkRatio, 1e-12)
}

func TestShortDeterministic(t *testing.T) {
	a, err := Short(baseParams())
	require.NoError(t, err)
	b, err := Short(baseParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLongCurve(t *testing.T) {
	curve, err := Long(baseParams())
	require.NoError(t, err)

	require.Len(t, curve.Series, len(DayOffsets))
	require.Len(t, curve.ETH.Points, DefaultPoints)

	assert.Equal(t, 0.0, curve.ETH.Points[30].Percent)
	assert.Equal(t, 0.0, curve.Series[0].Points[30].Percent)

	// 2700 is 1.5x spot.
	assert.Equal(t, 2700.0, curve.ETH.Points[60].Price)
	assert.Equal(t, 50.0, curve.ETH.Points[60].Percent)
	assert.Equal(t, 100.0, curve.LeveragedETH.Points[60].Percent)
	assert.Equal(t, 125.0, curve.Series[0].Points[60].Percent)

	// Funding erodes the long.
	assert.Less(t, curve.Series[3].Points[60].Percent, curve.Series[0].Points[60].Percent)
}

func TestLongInvalidParams(t *testing.T) {
	_, err := Long(Params{EthPrice: 1800, Mark: -1, Index: 1})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Long(Params{EthPrice: 1800, Step: math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Long(Params{EthPrice: 1e300})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLongFinite(t *testing.T) {
	curve, err := Long(baseParams())
	require.NoError(t, err)
	assert.True(t, curve.Finite())

	curve.LeveragedETH.Points[0].Percent = math.Inf(1)
	assert.False(t, curve.Finite())
}
