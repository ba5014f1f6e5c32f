package growth

import (
	"pump-sentinel-sol/internal/sentinel/state"
)

// Rates 每分钟增长速率。检测器只关心增长，下降一律报 0。
type Rates struct {
	HoldersPerMin  float64
	BundlersPerMin float64
	PricePerMin    float64
}

// Calc 用窗口内最旧和最新两个样本计算两点速率：
// (new - old) / Δt * 60。刻意不做最小二乘——采样稀疏时两点法更稳。
// 样本不足 2 个或两点时间戳相同时返回全零。
func Calc(st *state.TokenState) Rates {
	if st == nil || len(st.History) < 2 {
		return Rates{}
	}

	oldest := st.Oldest()
	newest := st.Latest()

	elapsed := newest.Timestamp.Sub(oldest.Timestamp).Seconds()
	if elapsed <= 0 {
		return Rates{}
	}

	return Rates{
		HoldersPerMin:  ratePerMin(float64(oldest.TotalHolders), float64(newest.TotalHolders), elapsed),
		BundlersPerMin: ratePerMin(float64(oldest.BundlerCount), float64(newest.BundlerCount), elapsed),
		PricePerMin:    ratePerMin(oldest.PriceUsd, newest.PriceUsd, elapsed),
	}
}

func ratePerMin(oldVal, newVal, elapsedSeconds float64) float64 {
	delta := newVal - oldVal
	if delta < 0 {
		return 0
	}
	return delta / elapsedSeconds * 60
}
