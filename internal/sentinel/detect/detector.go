package detect

import (
	"strconv"
	"time"

	"pump-sentinel-sol/internal/sentinel/growth"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/types"
)

// Detector 对单个代币的滚动状态做模式匹配。
// 无内部状态，同一个实例可被所有 tracker 并发使用。
type Detector struct {
	params Params
}

func NewDetector(params Params) *Detector {
	if params == (Params{}) {
		params = DefaultParams()
	}
	return &Detector{params: params}
}

func (d *Detector) Params() Params { return d.params }

// Evaluate 跑全部检测并返回命中的风险项。
// 正向信号（active/pump）与风险信号互不排斥，可能同时命中多条。
func (d *Detector) Evaluate(st *state.TokenState, rates growth.Rates, now time.Time) []types.RiskAssessment {
	if st == nil || len(st.History) == 0 {
		return nil
	}

	var out []types.RiskAssessment

	if ok, conds := d.ActivitySignal(st, rates, now); ok {
		out = append(out, types.RiskAssessment{
			Token:     st.Address,
			Category:  types.CategoryActive,
			Triggered: true,
			Evidence:  boolEvidence(conds),
		})
	}

	if ok, conds := d.PumpSignal(st, rates); ok {
		out = append(out, types.RiskAssessment{
			Token:     st.Address,
			Category:  types.CategoryPump,
			Triggered: true,
			Evidence:  boolEvidence(conds),
		})
	}

	if d.SniperRapidExit(st) {
		out = append(out, d.riskHit(st, types.CategorySniperRapidExit))
	}
	if d.InsiderRapidExit(st) {
		out = append(out, d.riskHit(st, types.CategoryInsiderRapidExit))
	}
	if d.BundlerSniperSync(st) {
		out = append(out, d.riskHit(st, types.CategoryBundlerSniperSync))
	}
	if d.SniperInsiderSync(st) {
		out = append(out, d.riskHit(st, types.CategorySniperInsiderSync))
	}
	if d.BundlerSniperExitSync(st) {
		out = append(out, d.riskHit(st, types.CategoryBundlerSniperExit))
	}
	if ok, checks := d.HolderPatternSuspicious(st); ok {
		out = append(out, types.RiskAssessment{
			Token:     st.Address,
			Category:  types.CategoryHolderPattern,
			Triggered: true,
			Evidence:  boolEvidence(checks),
		})
	}

	return out
}

func (d *Detector) riskHit(st *state.TokenState, category types.AlertCategory) types.RiskAssessment {
	latest := st.Latest()
	return types.RiskAssessment{
		Token:     st.Address,
		Category:  category,
		Triggered: true,
		Evidence: map[string]string{
			"sniper_pct":  formatPct(latest.SniperHoldingPct),
			"insider_pct": formatPct(latest.InsiderHoldingPct),
			"bundler_pct": formatPct(latest.BundlerHoldingPct),
			"samples":     strconv.Itoa(len(st.History)),
		},
	}
}

func boolEvidence(conds map[string]bool) map[string]string {
	out := make(map[string]string, len(conds))
	for k, v := range conds {
		out[k] = strconv.FormatBool(v)
	}
	return out
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
