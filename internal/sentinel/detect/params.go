package detect

// Params 模式检测参数。全部阈值都是线上标定出来的经验值，
// 没有推导依据，因此暴露为配置而不是写死在代码里。
type Params struct {
	// 快速撤退
	RapidExitRatio      float64 `json:"rapid_exit_ratio" yaml:"rapid_exit_ratio"`             // 跌幅倍数
	RapidExitMaxSeconds int     `json:"rapid_exit_max_seconds" yaml:"rapid_exit_max_seconds"` // 触发窗口（秒）

	// 同步变动相关性
	MinCorrelationSamples      int     `json:"min_correlation_samples" yaml:"min_correlation_samples"`           // 最少样本数
	MinSignificantChanges      int     `json:"min_significant_changes" yaml:"min_significant_changes"`           // 最少有效变动对数
	SignificantChangePct       float64 `json:"significant_change_pct" yaml:"significant_change_pct"`             // 有效变动阈值（百分点）
	CorrelationRelDiff         float64 `json:"correlation_rel_diff" yaml:"correlation_rel_diff"`                 // 相对差异上限
	CorrelationSuspiciousRatio float64 `json:"correlation_suspicious_ratio" yaml:"correlation_suspicious_ratio"` // 可疑对占比阈值
	SniperExitedPct            float64 `json:"sniper_exited_pct" yaml:"sniper_exited_pct"`                       // 狙击已撤退判定（%）
	SniperExitedWithRapidPct   float64 `json:"sniper_exited_with_rapid_pct" yaml:"sniper_exited_with_rapid_pct"` // 伴随快速撤退时的放宽判定（%）

	// 持仓结构分析
	AnalysisSnapshotLimit   int     `json:"analysis_snapshot_limit" yaml:"analysis_snapshot_limit"`       // 最多分析多少条快照
	MinStabilitySnapshots   int     `json:"min_stability_snapshots" yaml:"min_stability_snapshots"`       // 稳定性分析最少快照数
	LargeTopHolderPct       float64 `json:"large_top_holder_pct" yaml:"large_top_holder_pct"`             // top-3 大户阈值（%）
	StableChangePct         float64 `json:"stable_change_pct" yaml:"stable_change_pct"`                   // 稳定判定的最大变动（百分点）
	StableSniperRatio       float64 `json:"stable_sniper_ratio" yaml:"stable_sniper_ratio"`               // 稳定狙击期占比阈值
	HighSniperRatio         float64 `json:"high_sniper_ratio" yaml:"high_sniper_ratio"`                   // 高狙击 top-3 占比阈值
	PumpDumpSwingPct        float64 `json:"pump_dump_swing_pct" yaml:"pump_dump_swing_pct"`               // 冲高回落的单边幅度（百分点）
	PumpDumpCycleRatio      float64 `json:"pump_dump_cycle_ratio" yaml:"pump_dump_cycle_ratio"`           // 周期数占快照数的阈值
	MinEarlySnapshots       int     `json:"min_early_snapshots" yaml:"min_early_snapshots"`               // 早期对比分析最少快照数
	EarlyWindow             int     `json:"early_window" yaml:"early_window"`                             // 早期窗口快照数
	CurrentWindow           int     `json:"current_window" yaml:"current_window"`                         // 当前窗口快照数
	EarlyTotalPct           float64 `json:"early_total_pct" yaml:"early_total_pct"`                       // 早期 top-3 合计阈值（%）
	CurrentTotalPct         float64 `json:"current_total_pct" yaml:"current_total_pct"`                   // 当前 top-3 合计阈值（%）
	TotalReductionPct       float64 `json:"total_reduction_pct" yaml:"total_reduction_pct"`               // 合计降幅阈值（%）
	FirstHolderEarlyPct     float64 `json:"first_holder_early_pct" yaml:"first_holder_early_pct"`         // 第一大户早期阈值（%）
	FirstHolderCurrentPct   float64 `json:"first_holder_current_pct" yaml:"first_holder_current_pct"`     // 第一大户当前阈值（%）
	FirstHolderReductionPct float64 `json:"first_holder_reduction_pct" yaml:"first_holder_reduction_pct"` // 第一大户降幅阈值（百分点）

	Activity ActivityParams `json:"activity" yaml:"activity"`
	Pump     PumpParams     `json:"pump" yaml:"pump"`
}

// ActivityParams 活跃度信号阈值
type ActivityParams struct {
	MaxAgeSeconds            float64 `json:"max_age_seconds" yaml:"max_age_seconds"`
	MinHolders               int64   `json:"min_holders" yaml:"min_holders"`
	MaxHolders               int64   `json:"max_holders" yaml:"max_holders"`
	MaxEverHolders           int64   `json:"max_ever_holders" yaml:"max_ever_holders"`
	MaxPoolPct               float64 `json:"max_pool_pct" yaml:"max_pool_pct"`                             // 池子未消耗占比上限（%）
	MaxTopHolderPct          float64 `json:"max_top_holder_pct" yaml:"max_top_holder_pct"`                 // 最大单一干净持仓（%）
	BundlersAfterDevExitMin  float64 `json:"bundlers_after_dev_exit_min" yaml:"bundlers_after_dev_exit_min"`
	BundlersAfterDevExitMax  float64 `json:"bundlers_after_dev_exit_max" yaml:"bundlers_after_dev_exit_max"`
	BundlersBeforeDevExitMax float64 `json:"bundlers_before_dev_exit_max" yaml:"bundlers_before_dev_exit_max"`
	DevNowMaxPct             float64 `json:"dev_now_max_pct" yaml:"dev_now_max_pct"`
	DevEverMaxPct            float64 `json:"dev_ever_max_pct" yaml:"dev_ever_max_pct"`
	SnipersMaxCount          int64   `json:"snipers_max_count" yaml:"snipers_max_count"`
	SnipersMaxPct            float64 `json:"snipers_max_pct" yaml:"snipers_max_pct"`
	SnipersRapidMaxPct       float64 `json:"snipers_rapid_max_pct" yaml:"snipers_rapid_max_pct"` // 伴随快速撤退时放宽的上限
	SnipersRapidRatio        float64 `json:"snipers_rapid_ratio" yaml:"snipers_rapid_ratio"`     // 放宽路径使用的更严 ratio
	InsidersMaxPct           float64 `json:"insiders_max_pct" yaml:"insiders_max_pct"`
	InsidersRapidMaxPct      float64 `json:"insiders_rapid_max_pct" yaml:"insiders_rapid_max_pct"`
	MinLiquidityUsd          float64 `json:"min_liquidity_usd" yaml:"min_liquidity_usd"`
	MinHoldersPerMin         float64 `json:"min_holders_per_min" yaml:"min_holders_per_min"`
}

// PumpParams 拉盘信号阈值
type PumpParams struct {
	MinHoldersPerMin float64 `json:"min_holders_per_min" yaml:"min_holders_per_min"`
	MinFreshWallets  int64   `json:"min_fresh_wallets" yaml:"min_fresh_wallets"`
	MinFreshSol      float64 `json:"min_fresh_sol" yaml:"min_fresh_sol"`
	MinLiquidityUsd  float64 `json:"min_liquidity_usd" yaml:"min_liquidity_usd"`
	MinMarketCapUsd  float64 `json:"min_market_cap_usd" yaml:"min_market_cap_usd"`
}

// DefaultParams 线上标定的默认参数
func DefaultParams() Params {
	return Params{
		RapidExitRatio:      3.0,
		RapidExitMaxSeconds: 120,

		MinCorrelationSamples:      3,
		MinSignificantChanges:      2,
		SignificantChangePct:       0.1,
		CorrelationRelDiff:         0.3,
		CorrelationSuspiciousRatio: 0.5,
		SniperExitedPct:            0.5,
		SniperExitedWithRapidPct:   1.0,

		AnalysisSnapshotLimit:   1000,
		MinStabilitySnapshots:   20,
		LargeTopHolderPct:       3.0,
		StableChangePct:         0.3,
		StableSniperRatio:       0.25,
		HighSniperRatio:         0.6,
		PumpDumpSwingPct:        1.5,
		PumpDumpCycleRatio:      0.10,
		MinEarlySnapshots:       50,
		EarlyWindow:             15,
		CurrentWindow:           10,
		EarlyTotalPct:           12.0,
		CurrentTotalPct:         10.0,
		TotalReductionPct:       20.0,
		FirstHolderEarlyPct:     6.0,
		FirstHolderCurrentPct:   4.5,
		FirstHolderReductionPct: 1.5,

		Activity: ActivityParams{
			MaxAgeSeconds:            120,
			MinHolders:               30,
			MaxHolders:               100,
			MaxEverHolders:           140,
			MaxPoolPct:               70,
			MaxTopHolderPct:          7,
			BundlersAfterDevExitMin:  5,
			BundlersAfterDevExitMax:  50,
			BundlersBeforeDevExitMax: 50,
			DevNowMaxPct:             2,
			DevEverMaxPct:            30,
			SnipersMaxCount:          20,
			SnipersMaxPct:            3.5,
			SnipersRapidMaxPct:       8.0,
			SnipersRapidRatio:        2.5,
			InsidersMaxPct:           15,
			InsidersRapidMaxPct:      22,
			MinLiquidityUsd:          10000,
			MinHoldersPerMin:         2900,
		},
		Pump: PumpParams{
			MinHoldersPerMin: 0.5,
			MinFreshWallets:  5,
			MinFreshSol:      2.0,
			MinLiquidityUsd:  20000,
			MinMarketCapUsd:  50000,
		},
	}
}
