package models

// PayoffPoint is a hypothetical ETH price and the strategy return at that price, in percent.
type PayoffPoint struct {
	Price   float64 `json:"price"`
	Percent float64 `json:"percent"`
}

// PayoffSeries is one curve of a payoff chart, evaluated Days after entry.
type PayoffSeries struct {
	Label      string        `json:"label"`
	Days       int           `json:"days"`
	NormFactor float64       `json:"normFactor"`
	Points     []PayoffPoint `json:"points"`
}
