package contribution

import "github.com/shopspring/decimal"

// Round2 rounds to two decimal places, half away from zero. The float is
// converted through its shortest decimal representation first, so 1.005
// becomes 1.01 rather than the 1.00 that scaling by 100 would give.
func Round2(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}
