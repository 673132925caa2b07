package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

type Concentration struct {
	Hhi                    decimal.Decimal
	CoefficientOfVariation float64
	Top1Percentage         decimal.Decimal
	Top5Percentage         decimal.Decimal
	TotalEntities          int
	EffectiveEntities      decimal.Decimal
	TotalAmount            decimal.Decimal
}

// Fractions returns each amount as a fraction of the total.
func Fractions(amounts []decimal.Decimal) ([]decimal.Decimal, decimal.Decimal) {
	total := decimal.Sum(decimal.Zero, amounts...)
	out := make([]decimal.Decimal, 0, len(amounts))
	if !total.IsPositive() {
		return out, total
	}
	for _, a := range amounts {
		out = append(out, a.Div(total))
	}
	return out, total
}

// HerfindahlHirschmanIndex is the sum of squared fractions, from 1/n (even)
// to 1 (one holder).
func HerfindahlHirschmanIndex(fractions []decimal.Decimal) decimal.Decimal {
	hhi := decimal.Zero
	for _, f := range fractions {
		hhi = hhi.Add(f.Mul(f))
	}
	return hhi
}

// CoefficientOfVariation is the sample standard deviation over the mean, or 0
// when the mean is not positive or there are fewer than two values.
func CoefficientOfVariation(values []decimal.Decimal) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := decimal.Avg(values[0], values[1:]...)
	if !mean.IsPositive() {
		return 0
	}
	sumSq := decimal.Zero
	for _, v := range values {
		d := v.Sub(mean)
		sumSq = sumSq.Add(d.Mul(d))
	}
	variance := sumSq.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return math.Sqrt(variance.InexactFloat64()) / mean.InexactFloat64()
}

// TopNShare sums the n largest fractions.
func TopNShare(fractions []decimal.Decimal, n int) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(fractions))
	copy(sorted, fractions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].GreaterThan(sorted[j])
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return decimal.Sum(decimal.Zero, sorted[:n]...)
}

// ComputeConcentration returns false when there is nothing to measure.
func ComputeConcentration(amounts []decimal.Decimal) (*Concentration, bool) {
	fractions, total := Fractions(amounts)
	if len(amounts) == 0 || !total.IsPositive() {
		return nil, false
	}
	hhi := HerfindahlHirschmanIndex(fractions)
	effective := decimal.NewFromInt(int64(len(amounts)))
	if hhi.IsPositive() {
		effective = decimal.NewFromInt(1).Div(hhi)
	}
	hundred := decimal.NewFromInt(100)
	return &Concentration{
		Hhi:                    hhi,
		CoefficientOfVariation: CoefficientOfVariation(amounts),
		Top1Percentage:         TopNShare(fractions, 1).Mul(hundred),
		Top5Percentage:         TopNShare(fractions, 5).Mul(hundred),
		TotalEntities:          len(amounts),
		EffectiveEntities:      effective,
		TotalAmount:            total,
	}, true
}
