package state

import "time"

// MetricSample 一次带时间戳的指标观测。
// 所有数值字段缺省为 0，payload 中缺失的字段不会把 null 带进算术。
type MetricSample struct {
	Timestamp         time.Time
	TotalHolders      int64
	DevHoldingPct     float64
	BundlerHoldingPct float64
	BundlerCount      int64
	SniperHoldingPct  float64
	SniperCount       int64
	InsiderHoldingPct float64
	LiquidityUsd      float64
	MarketCapUsd      float64
	PriceUsd          float64
	TotalSupply       float64
	FreshWalletCount  int64
	FreshWalletSol    float64
}

// HolderSnapshot 一次持仓结构快照，仅供模式检测使用
type HolderSnapshot struct {
	Timestamp       time.Time
	Percentages     []float64 // top-10 占比，降序，排除 pool/bundler/insider/dev
	Top3SniperCount int       // top-3 中疑似狙击持仓的数量（占比 > 3%）
	TotalSniperPct  float64
}
