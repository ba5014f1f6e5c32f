package detect

import (
	"math"
	"sort"

	"pump-sentinel-sol/internal/sentinel/state"
)

// analysisWindow 取最近 AnalysisSnapshotLimit 条快照
func (d *Detector) analysisWindow(st *state.TokenState) []state.HolderSnapshot {
	snaps := st.SnapshotHistory
	if limit := d.params.AnalysisSnapshotLimit; limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}
	return snaps
}

// topN 快照中第 i 大干净持仓占比，不足补 0
func topN(snap state.HolderSnapshot, i int) float64 {
	if i < len(snap.Percentages) {
		return snap.Percentages[i]
	}
	return 0
}

func top3Sum(snap state.HolderSnapshot) float64 {
	return topN(snap, 0) + topN(snap, 1) + topN(snap, 2)
}

// HolderPatternSuspicious 持仓结构综合判定：
// 狙击大户长期稳定、top-3 被狙击占据、反复冲高回落、
// 早期大户未按自然节奏减仓，任一命中即可疑。
func (d *Detector) HolderPatternSuspicious(st *state.TokenState) (bool, map[string]bool) {
	snaps := d.analysisWindow(st)

	checks := map[string]bool{
		"stable_sniper":    d.stableSniperPeriods(snaps),
		"high_sniper_top3": d.highSniperTop3(snaps),
		"pump_dump_cycles": d.pumpDumpCycles(snaps),
		"early_vs_current": d.earlyVsCurrent(snaps),
	}
	for _, hit := range checks {
		if hit {
			return true, checks
		}
	}
	return false, checks
}

// stableSniperPeriods top-3 大额持仓长时间纹丝不动。
// 真实买盘的 top 持仓在早期总会有持续的小幅波动，
// 稳定期占比过高说明是捂着不动的操盘仓位。
// 只有 top-3 中至少两个大额持仓的区间才算稳定期，
// 阈值按整个分析窗口的快照数折算。
func (d *Detector) stableSniperPeriods(snaps []state.HolderSnapshot) bool {
	if len(snaps) < d.params.MinStabilitySnapshots {
		return false
	}

	stable := 0
	for i := 1; i < len(snaps); i++ {
		prev, cur := snaps[i-1], snaps[i]

		large := 0
		for j := 0; j < 3; j++ {
			if topN(cur, j) > d.params.LargeTopHolderPct {
				large++
			}
		}
		if large < 2 {
			continue
		}

		allStable := true
		for j := 0; j < 3; j++ {
			if math.Abs(topN(cur, j)-topN(prev, j)) >= d.params.StableChangePct {
				allStable = false
				break
			}
		}
		if allStable {
			stable++
		}
	}

	return float64(stable) > float64(len(snaps))*d.params.StableSniperRatio
}

// highSniperTop3 top-3 中疑似狙击仓位长期占多数
func (d *Detector) highSniperTop3(snaps []state.HolderSnapshot) bool {
	if len(snaps) < d.params.MinStabilitySnapshots {
		return false
	}

	high := 0
	for _, snap := range snaps {
		if snap.Top3SniperCount >= 2 {
			high++
		}
	}
	return float64(high)/float64(len(snaps)) > d.params.HighSniperRatio
}

// pumpDumpCycles top-3 合计占比反复冲高回落。
// 三个连续快照构成一个周期：先涨超过 swing，再跌超过 swing。
func (d *Detector) pumpDumpCycles(snaps []state.HolderSnapshot) bool {
	if len(snaps) < d.params.MinStabilitySnapshots {
		return false
	}

	cycles := 0
	for i := 2; i < len(snaps); i++ {
		a := top3Sum(snaps[i-2])
		b := top3Sum(snaps[i-1])
		c := top3Sum(snaps[i])
		if b-a > d.params.PumpDumpSwingPct && b-c > d.params.PumpDumpSwingPct {
			cycles++
		}
	}
	return float64(cycles) > float64(len(snaps))*d.params.PumpDumpCycleRatio
}

// earlyVsCurrent 早期窗口与当前窗口的 top-3 中位数对比。
// 自然换手下早期大户会被稀释，占比几乎不降的是锁仓操盘。
func (d *Detector) earlyVsCurrent(snaps []state.HolderSnapshot) bool {
	if len(snaps) < d.params.MinEarlySnapshots {
		return false
	}
	if len(snaps) < d.params.EarlyWindow+d.params.CurrentWindow {
		return false
	}

	early := snaps[:d.params.EarlyWindow]
	current := snaps[len(snaps)-d.params.CurrentWindow:]

	earlyMedians := positionMedians(early, 3)
	currentMedians := positionMedians(current, 3)

	earlyTotal := earlyMedians[0] + earlyMedians[1] + earlyMedians[2]
	currentTotal := currentMedians[0] + currentMedians[1] + currentMedians[2]

	// 合计占比高且几乎不降
	if earlyTotal > d.params.EarlyTotalPct && currentTotal > d.params.CurrentTotalPct {
		reduction := reductionPct(earlyTotal, currentTotal)
		if reduction < d.params.TotalReductionPct {
			return true
		}
	}

	// 第一大户占比高且几乎不降
	if earlyMedians[0] > d.params.FirstHolderEarlyPct && currentMedians[0] > d.params.FirstHolderCurrentPct {
		if earlyMedians[0]-currentMedians[0] < d.params.FirstHolderReductionPct {
			return true
		}
	}

	return false
}

// positionMedians 对窗口内每个持仓位次分别取中位数。
// 偶数个样本取偏大的中间元素，和历史标定口径一致。
func positionMedians(snaps []state.HolderSnapshot, positions int) []float64 {
	medians := make([]float64, positions)
	vals := make([]float64, 0, len(snaps))
	for p := 0; p < positions; p++ {
		vals = vals[:0]
		for _, snap := range snaps {
			vals = append(vals, topN(snap, p))
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		medians[p] = sorted[len(sorted)/2]
	}
	return medians
}

// reductionPct 从 early 到 current 的降幅百分比
func reductionPct(early, current float64) float64 {
	if early <= 0 {
		return 0
	}
	return (early - current) / early * 100
}
