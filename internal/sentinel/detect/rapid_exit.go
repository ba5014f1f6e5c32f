package detect

import (
	"time"

	"pump-sentinel-sol/internal/sentinel/state"
)

// rapidExit 判定指标序列是否出现"快速撤退"：
// 从首个正值 v0 起，首次跌到 v0/ratio 以下的时间点距 v0 不超过
// maxSeconds，且最新值仍停留在 v0/ratio 以下。
// 中途回升再跌不算——只看首次跌破点。
func rapidExit(samples []state.MetricSample, pick func(state.MetricSample) float64, ratio float64, maxSeconds int) bool {
	if ratio <= 0 || len(samples) < 2 {
		return false
	}

	// 找到首个正值
	start := -1
	for i, s := range samples {
		if pick(s) > 0 {
			start = i
			break
		}
	}
	if start < 0 || start == len(samples)-1 {
		return false
	}

	v0 := pick(samples[start])
	threshold := v0 / ratio
	t0 := samples[start].Timestamp

	// 首次跌破点
	drop := -1
	for i := start + 1; i < len(samples); i++ {
		if pick(samples[i]) <= threshold {
			drop = i
			break
		}
	}
	if drop < 0 {
		return false
	}

	if samples[drop].Timestamp.Sub(t0) > time.Duration(maxSeconds)*time.Second {
		return false
	}

	// 最新值必须仍在低位，排除跌完又接回去的情况
	return pick(samples[len(samples)-1]) <= threshold
}

// SniperRapidExit 狙击持仓快速撤退
func (d *Detector) SniperRapidExit(st *state.TokenState) bool {
	return rapidExit(st.History, func(s state.MetricSample) float64 { return s.SniperHoldingPct },
		d.params.RapidExitRatio, d.params.RapidExitMaxSeconds)
}

// InsiderRapidExit 内幕持仓快速撤退
func (d *Detector) InsiderRapidExit(st *state.TokenState) bool {
	return rapidExit(st.History, func(s state.MetricSample) float64 { return s.InsiderHoldingPct },
		d.params.RapidExitRatio, d.params.RapidExitMaxSeconds)
}

func (d *Detector) sniperRapidExitWithRatio(st *state.TokenState, ratio float64) bool {
	return rapidExit(st.History, func(s state.MetricSample) float64 { return s.SniperHoldingPct },
		ratio, d.params.RapidExitMaxSeconds)
}

func (d *Detector) insiderRapidExitWithRatio(st *state.TokenState, ratio float64) bool {
	return rapidExit(st.History, func(s state.MetricSample) float64 { return s.InsiderHoldingPct },
		ratio, d.params.RapidExitMaxSeconds)
}
