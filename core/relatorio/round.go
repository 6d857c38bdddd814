package relatorio

import (
	"math"
	"math/big"
)

var pow10 = [...]int64{1, 10, 100, 1000, 10000}

// roundFixed rounds x to the given number of decimals on its exact binary value,
// ties away from zero (0.125 -> 0.13, 0.25 -> 0.3, 1.005 -> 1).
// It is how every displayed figure is rounded, and thresholds compare rounded values.
func roundFixed(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		return x
	}
	if digits < 0 || digits >= len(pow10) {
		panic("relatorio: unsupported number of decimals")
	}

	scale := big.NewInt(pow10[digits])
	v := new(big.Float).SetPrec(128).SetFloat64(math.Abs(x))
	v.Mul(v, new(big.Float).SetInt(scale))
	v.Add(v, big.NewFloat(0.5))
	n, _ := v.Int(nil) // truncates: floor for positive values

	res, _ := new(big.Rat).SetFrac(n, scale).Float64()
	if res == 0 {
		return 0
	}
	if x < 0 {
		return -res
	}
	return res
}
