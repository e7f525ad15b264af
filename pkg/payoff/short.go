package payoff

import (
	"fmt"
	"math"

	"github.com/gregtusar/squeeth/pkg/models"
)

// ShortCurve is the payoff of minting squeeth against ETH collateral and selling it.
type ShortCurve struct {
	MarkRatio         float64               `json:"markRatio"`
	DailyNormFactor   float64               `json:"dailyNormFactor"`
	InitialCollateral float64               `json:"initialCollateral"`
	DepositValue      float64               `json:"depositValue"`
	Series            []models.PayoffSeries `json:"series"`
}

// Short computes the short squeeth payoff for every day offset in DayOffsets.
//
// A zero deposit value is not rejected: percentages come out as ±Inf or NaN and the
// caller decides what to show. Finite reports whether that happened.
func Short(p Params) (*ShortCurve, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	markRatio := MarkRatio(p.Mark, p.Index)
	dailyNF := DailyNormFactor(markRatio)
	initialCollateral := p.CollatRatio * p.EthPrice
	squeethMark := p.SqueethMark
	if squeethMark == 0 {
		squeethMark = markRatio * p.EthPrice * p.EthPrice
	}
	depositValue := initialCollateral*p.EthPrice - squeethMark

	prices := PriceRange(p.EthPrice, p.Step, p.Points)
	curve := &ShortCurve{
		MarkRatio:         markRatio,
		DailyNormFactor:   dailyNF,
		InitialCollateral: initialCollateral,
		DepositValue:      depositValue,
		Series:            make([]models.PayoffSeries, 0, len(DayOffsets)),
	}

	for _, days := range DayOffsets {
		nf := NormFactorAfter(dailyNF, days)
		points := make([]models.PayoffPoint, len(prices))
		for i, price := range prices {
			points[i] = models.PayoffPoint{
				Price:   price,
				Percent: ShortPercent(nf, price, markRatio, initialCollateral, depositValue),
			}
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

// ShortPercent is the return, in percent, of a short position at ETH price after the
// normalization factor has decayed to nf.
func ShortPercent(nf, price, markRatio, initialCollateral, depositValue float64) float64 {
	v := (-nf*price*price*markRatio + initialCollateral*price) / depositValue
	return round2((v - 1) * 100)
}

// Finite reports whether every point of the curve is a finite number.
func (c *ShortCurve) Finite() bool {
	return seriesFinite(c.Series)
}

func seriesFinite(series []models.PayoffSeries) bool {
	for _, s := range series {
		for _, pt := range s.Points {
			if math.IsNaN(pt.Percent) || math.IsInf(pt.Percent, 0) {
				return false
			}
		}
	}
	return true
}
