// Package report holds the unified metric shapes the dashboard renders:
// tagged numeric samples, normalized display metrics, and the
// period-over-period delta engine.
package report

// Sample is a tagged numeric value: either live data obtained from a
// provider, or unavailable. Keeping availability in the type means "not
// connected" can never be coerced to zero by arithmetic; a 0 conversion rate
// and a missing conversion rate stay distinguishable.
type Sample struct {
	value float64
	live  bool
}

// Live wraps a value actually obtained from a provider.
func Live(value float64) Sample {
	return Sample{value: value, live: true}
}

// Unavailable is the placeholder sample for absent, slow, or erroring providers.
func Unavailable() Sample {
	return Sample{}
}

// OK reports whether the sample holds live data.
func (s Sample) OK() bool {
	return s.live
}

// Value returns the numeric value; zero when unavailable. Callers doing
// arithmetic must gate on OK first.
func (s Sample) Value() float64 {
	return s.value
}

// Plus sums two samples. The result is live only when both inputs are;
// summing a live value with "no data" would fabricate coverage.
func (s Sample) Plus(other Sample) Sample {
	if !s.live || !other.live {
		return Unavailable()
	}
	return Live(s.value + other.value)
}

// Ratio divides numerator by denominator, live only when both sides are live
// and the denominator is non-zero. Derived ratios are computed from
// pre-aggregation totals, never averaged per row, so this is the single
// division point.
func Ratio(numerator, denominator Sample) Sample {
	if !numerator.live || !denominator.live || denominator.value == 0 {
		return Unavailable()
	}
	return Live(numerator.value / denominator.value)
}

// Scale multiplies a live sample by a constant factor.
func (s Sample) Scale(factor float64) Sample {
	if !s.live {
		return Unavailable()
	}
	return Live(s.value * factor)
}
