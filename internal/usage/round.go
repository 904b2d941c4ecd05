package usage

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// round2 rounds v to 2 decimal places from its exact binary value, breaking
// exact ties to even. 0.125 becomes 0.12 and 0.145 (stored as 0.14499...) becomes 0.14.
func round2(v float64) float64 {
	if v == 0 {
		return 0
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 2, 64))
	if err != nil {
		// NaN and Inf have no decimal form
		return v
	}
	return d.InexactFloat64()
}
