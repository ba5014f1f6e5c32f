package detect

import (
	"math"

	"pump-sentinel-sol/internal/sentinel/state"
)

// deltaPair 相邻样本间两个指标的变动量
type deltaPair struct {
	a float64
	b float64
}

// deltaPairs 逐相邻样本取两个指标的变动量，
// 只保留主指标变动超过 significant 的对
func deltaPairs(samples []state.MetricSample, pickA, pickB func(state.MetricSample) float64, significant float64) []deltaPair {
	var pairs []deltaPair
	for i := 1; i < len(samples); i++ {
		da := pickA(samples[i]) - pickA(samples[i-1])
		db := pickB(samples[i]) - pickB(samples[i-1])
		if math.Abs(da) > significant {
			pairs = append(pairs, deltaPair{a: da, b: db})
		}
	}
	return pairs
}

// sameSignCorrelated 同号且相对差异小于上限
func sameSignCorrelated(p deltaPair, relDiff float64) bool {
	if p.a == 0 || p.b == 0 {
		return false
	}
	if (p.a > 0) != (p.b > 0) {
		return false
	}
	larger := math.Max(math.Abs(p.a), math.Abs(p.b))
	return math.Abs(math.Abs(p.a)-math.Abs(p.b))/larger < relDiff
}

// bothNegativeCorrelated 同时下跌且幅度接近
func bothNegativeCorrelated(p deltaPair, relDiff float64) bool {
	if p.a >= 0 || p.b >= 0 {
		return false
	}
	larger := math.Max(math.Abs(p.a), math.Abs(p.b))
	return math.Abs(math.Abs(p.a)-math.Abs(p.b))/larger < relDiff
}

// correlated 可疑对占比达到阈值即判定为同步操纵
func (d *Detector) correlated(pairs []deltaPair, judge func(deltaPair, float64) bool) bool {
	if len(pairs) < d.params.MinSignificantChanges {
		return false
	}
	suspicious := 0
	for _, p := range pairs {
		if judge(p, d.params.CorrelationRelDiff) {
			suspicious++
		}
	}
	return float64(suspicious)/float64(len(pairs)) >= d.params.CorrelationSuspiciousRatio
}

// snipersExited 狙击持仓已经清空（或接近清空且有快速撤退记录）。
// 此后所有涉及狙击指标的相关性分析都不再进行——
// 剩余噪声会制造大量假相关。
func (d *Detector) snipersExited(st *state.TokenState) bool {
	sniperNow := st.Latest().SniperHoldingPct
	if sniperNow <= d.params.SniperExitedPct {
		return true
	}
	return sniperNow <= d.params.SniperExitedWithRapidPct && d.SniperRapidExit(st)
}

// BundlerSniperSync 捆绑与狙击持仓同步变动
func (d *Detector) BundlerSniperSync(st *state.TokenState) bool {
	if len(st.History) < d.params.MinCorrelationSamples {
		return false
	}
	if d.snipersExited(st) {
		return false
	}
	pairs := deltaPairs(st.History,
		func(s state.MetricSample) float64 { return s.BundlerHoldingPct },
		func(s state.MetricSample) float64 { return s.SniperHoldingPct },
		d.params.SignificantChangePct)
	return d.correlated(pairs, sameSignCorrelated)
}

// SniperInsiderSync 狙击与内幕持仓同步变动
func (d *Detector) SniperInsiderSync(st *state.TokenState) bool {
	if len(st.History) < d.params.MinCorrelationSamples {
		return false
	}
	if d.snipersExited(st) {
		return false
	}
	pairs := deltaPairs(st.History,
		func(s state.MetricSample) float64 { return s.SniperHoldingPct },
		func(s state.MetricSample) float64 { return s.InsiderHoldingPct },
		d.params.SignificantChangePct)
	return d.correlated(pairs, sameSignCorrelated)
}

// BundlerSniperExitSync 捆绑与狙击同步撤退
func (d *Detector) BundlerSniperExitSync(st *state.TokenState) bool {
	if len(st.History) < d.params.MinCorrelationSamples {
		return false
	}
	if d.snipersExited(st) {
		return false
	}

	pairs := deltaPairs(st.History,
		func(s state.MetricSample) float64 { return s.BundlerHoldingPct },
		func(s state.MetricSample) float64 { return s.SniperHoldingPct },
		d.params.SignificantChangePct)
	return d.correlated(pairs, bothNegativeCorrelated)
}
