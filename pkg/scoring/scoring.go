// Package scoring turns already-derived operator metrics into a composite
// risk score. Only the structure is fixed here: three component scores in
// the range 0-100 are weighted into one value, which is then bucketed into a
// risk level alongside a confidence figure.
package scoring

import (
	"github.com/shopspring/decimal"
)

type RiskLevel string

const (
	RiskLevel_Low      RiskLevel = "LOW"
	RiskLevel_Medium   RiskLevel = "MEDIUM"
	RiskLevel_High     RiskLevel = "HIGH"
	RiskLevel_Critical RiskLevel = "CRITICAL"
)

// DefaultComponentScore stands in for any component that could not be computed.
const DefaultComponentScore = 50

var (
	weightPerformance = decimal.RequireFromString("0.50")
	weightEconomic    = decimal.RequireFromString("0.35")
	weightNetwork     = decimal.RequireFromString("0.15")

	maxScore = decimal.NewFromInt(100)
)

type Inputs struct {
	Performance *float64
	Economic    *float64
	Network     *float64

	OperationalDays uint64
	DelegatorCount  uint64
}

type Score struct {
	Value      float64
	Confidence float64
	Level      RiskLevel

	Performance float64
	Economic    float64
	Network     float64
}

// component clamps a component score into [0, 100]; nil becomes the default.
func component(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.NewFromInt(DefaultComponentScore)
	}
	d := decimal.NewFromFloat(*v)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(maxScore) {
		return maxScore
	}
	return d
}

func Compute(in *Inputs) *Score {
	p := component(in.Performance)
	e := component(in.Economic)
	n := component(in.Network)

	value := p.Mul(weightPerformance).
		Add(e.Mul(weightEconomic)).
		Add(n.Mul(weightNetwork)).
		Round(2)

	return &Score{
		Value:       value.InexactFloat64(),
		Confidence:  Confidence(in.OperationalDays, in.DelegatorCount),
		Level:       LevelFor(value.InexactFloat64()),
		Performance: p.Round(2).InexactFloat64(),
		Economic:    e.Round(2).InexactFloat64(),
		Network:     n.Round(2).InexactFloat64(),
	}
}

func LevelFor(value float64) RiskLevel {
	switch {
	case value >= 80:
		return RiskLevel_Low
	case value >= 60:
		return RiskLevel_Medium
	case value >= 40:
		return RiskLevel_High
	default:
		return RiskLevel_Critical
	}
}

// Confidence reflects how much data backs a score: tenure up to 30 days,
// delegator count, and a bonus for operators that started within a week.
func Confidence(operationalDays uint64, delegatorCount uint64) float64 {
	total := decimal.Zero

	if operationalDays >= 30 {
		total = total.Add(decimal.NewFromInt(50))
	} else {
		total = total.Add(decimal.NewFromUint64(operationalDays).Mul(decimal.NewFromInt(50)).Div(decimal.NewFromInt(30)))
	}

	switch {
	case delegatorCount >= 10:
		total = total.Add(decimal.NewFromInt(30))
	case delegatorCount >= 2:
		total = total.Add(decimal.NewFromInt(20))
	default:
		total = total.Add(decimal.NewFromInt(10))
	}

	if operationalDays <= 7 {
		total = total.Add(decimal.NewFromInt(20))
	} else {
		total = total.Add(decimal.NewFromInt(10))
	}
	return total.Round(2).InexactFloat64()
}
