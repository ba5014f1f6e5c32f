package utils

import (
	"math"
	"math/big"
	"sort"
	"strconv"
)

// Float64Round2 对 float64 保留最多两位小数，适用于市值、流动性等指标
func Float64Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Pow10(n uint8) float64 {
	switch n {
	case 6:
		return 1e6
	case 9:
		return 1e9
	case 18:
		return 1e18
	case 0:
		return 1
	case 8:
		return 1e8
	default:
		return math.Pow10(int(n)) // 对于其它情况使用 math.Pow10
	}
}

func AmountToFloat64(value string, decimals uint8) float64 {
	if i, err := strconv.ParseUint(value, 10, 64); err == nil {
		return float64(i) / Pow10(decimals)
	}

	bi, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return 0
	}

	bf := new(big.Float).SetInt(bi)
	bf.Quo(bf, new(big.Float).SetFloat64(Pow10(decimals)))

	result, _ := bf.Float64()
	return result
}

func Uint64ToStr(value uint64) string {
	return strconv.FormatUint(value, 10)
}

// SafeDiv 除零时返回 0，比例/速率计算统一走这里
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Median 计算中位数，输入为空时返回 0。不修改入参。
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
