package payoff

import (
	"fmt"

	"github.com/gregtusar/squeeth/pkg/models"
)

// LongCurve compares holding squeeth against holding ETH outright or at 2x leverage.
type LongCurve struct {
	MarkRatio       float64               `json:"markRatio"`
	DailyNormFactor float64               `json:"dailyNormFactor"`
	Series          []models.PayoffSeries `json:"series"`
	ETH             models.PayoffSeries   `json:"eth"`
	LeveragedETH    models.PayoffSeries   `json:"leveragedEth"`
}

// Long computes the long squeeth payoff for every day offset in DayOffsets. The mark
// ratio is assumed constant over the horizon, so only funding erodes the position.
func Long(p Params) (*LongCurve, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	markRatio := MarkRatio(p.Mark, p.Index)
	dailyNF := DailyNormFactor(markRatio)
	prices := PriceRange(p.EthPrice, p.Step, p.Points)

	curve := &LongCurve{
		MarkRatio:       markRatio,
		DailyNormFactor: dailyNF,
		Series:          make([]models.PayoffSeries, 0, len(DayOffsets)),
		ETH:             models.PayoffSeries{Label: "ETH", NormFactor: 1, Points: make([]models.PayoffPoint, len(prices))},
		LeveragedETH:    models.PayoffSeries{Label: "2x ETH", NormFactor: 1, Points: make([]models.PayoffPoint, len(prices))},
	}

	for i, price := range prices {
		ethReturn := (price/p.EthPrice - 1) * 100
		curve.ETH.Points[i] = models.PayoffPoint{Price: price, Percent: round2(ethReturn)}
		curve.LeveragedETH.Points[i] = models.PayoffPoint{Price: price, Percent: round2(2 * ethReturn)}
	}

	for _, days := range DayOffsets {
		nf := NormFactorAfter(dailyNF, days)
		points := make([]models.PayoffPoint, len(prices))
		for i, price := range prices {
			ratio := price / p.EthPrice
			points[i] = models.PayoffPoint{Price: price, Percent: round2((nf*ratio*ratio - 1) * 100)}
		}
		curve.Series = append(curve.Series, models.PayoffSeries{
			Label:      fmt.Sprintf("%d days", days),
			Days:       days,
			NormFactor: nf,
			Points:     points,
		})
	}

	return curve, nil
}

// Finite reports whether every point of the curve, including the ETH series, is a
// finite number.
func (c *LongCurve) Finite() bool {
	return seriesFinite(c.Series) && seriesFinite([]models.PayoffSeries{c.ETH, c.LeveragedETH})
}
