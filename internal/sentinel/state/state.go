package state

import (
	"time"
)

// Config 状态层参数，默认值即线上标定值
type Config struct {
	RetentionSeconds    int     `json:"retention_seconds" yaml:"retention_seconds"`           // 样本保留窗口（秒）
	SnapshotCap         int     `json:"snapshot_cap" yaml:"snapshot_cap"`                     // 持仓快照环形上限
	DevExitPct          float64 `json:"dev_exit_pct" yaml:"dev_exit_pct"`                     // dev 退出判定阈值（%）
	PoolSingleHolderPct float64 `json:"pool_single_holder_pct" yaml:"pool_single_holder_pct"` // 单一大户视为池子的阈值（%）
	MinSnapshotHolders  int     `json:"min_snapshot_holders" yaml:"min_snapshot_holders"`     // 记录快照所需的最少干净持仓数
	SniperTopPct        float64 `json:"sniper_top_pct" yaml:"sniper_top_pct"`                 // top-3 疑似狙击持仓阈值（%）
}

func DefaultConfig() Config {
	return Config{
		RetentionSeconds:    300,
		SnapshotCap:         1000,
		DevExitPct:          2.0,
		PoolSingleHolderPct: 30.0,
		MinSnapshotHolders:  3,
		SniperTopPct:        3.0,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	def := DefaultConfig()
	if out.RetentionSeconds <= 0 {
		out.RetentionSeconds = def.RetentionSeconds
	}
	if out.SnapshotCap <= 0 {
		out.SnapshotCap = def.SnapshotCap
	}
	if out.DevExitPct <= 0 {
		out.DevExitPct = def.DevExitPct
	}
	if out.PoolSingleHolderPct <= 0 {
		out.PoolSingleHolderPct = def.PoolSingleHolderPct
	}
	if out.MinSnapshotHolders <= 0 {
		out.MinSnapshotHolders = def.MinSnapshotHolders
	}
	if out.SniperTopPct <= 0 {
		out.SniperTopPct = def.SniperTopPct
	}
	return out
}

// TokenState 单个代币的全部滚动状态。
// 只允许该代币的 tracker 协程（单写者）通过 Store.Apply 修改。
type TokenState struct {
	Address   string
	Symbol    string
	Name      string
	Deployer  string
	MarketID  string
	CreatedAt time.Time // 市场创建时间（payload 提供）
	FirstSeen time.Time // 本进程首次观测时间

	History         []MetricSample   // 窗口内样本，旧的持续淘汰
	Holders         *HolderTable     // 当前 top-holder 表
	SnapshotHistory []HolderSnapshot // 持仓结构快照，环形上限

	DevExited   bool // 一次性锁存：dev 从 >0 跌到阈值以下
	DevExitTime time.Time

	MaxDevPct                  float64
	MaxBundlerPctBeforeDevExit float64
	MaxBundlerPctAfterDevExit  float64
	MaxHolderCount             int64

	ResolutionFailures int64 // market 解析失败计数（非 200 应答）
}

func newTokenState(address string, now time.Time) *TokenState {
	return &TokenState{
		Address:   address,
		FirstSeen: now,
		Holders:   NewHolderTable(),
	}
}

// Latest 最新样本，没有样本时返回零值
func (st *TokenState) Latest() MetricSample {
	if len(st.History) == 0 {
		return MetricSample{}
	}
	return st.History[len(st.History)-1]
}

// Oldest 窗口内最旧样本
func (st *TokenState) Oldest() MetricSample {
	if len(st.History) == 0 {
		return MetricSample{}
	}
	return st.History[0]
}

// AgeSeconds 距市场创建的秒数，创建时间未知时退化为首次观测时间
func (st *TokenState) AgeSeconds(now time.Time) float64 {
	base := st.CreatedAt
	if base.IsZero() {
		base = st.FirstSeen
	}
	if base.IsZero() {
		return 0
	}
	return now.Sub(base).Seconds()
}

// pruneHistory 淘汰窗口外样本，保留顺序
func (st *TokenState) pruneHistory(retention time.Duration) {
	if len(st.History) == 0 {
		return
	}
	newest := st.History[len(st.History)-1].Timestamp
	cutoff := newest.Add(-retention)

	i := 0
	for i < len(st.History) && st.History[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		st.History = append(st.History[:0], st.History[i:]...)
	}
}

// appendSnapshot 追加持仓快照，超过上限时淘汰最旧的
func (st *TokenState) appendSnapshot(snap HolderSnapshot, limit int) {
	st.SnapshotHistory = append(st.SnapshotHistory, snap)
	if len(st.SnapshotHistory) > limit {
		st.SnapshotHistory = append(st.SnapshotHistory[:0], st.SnapshotHistory[len(st.SnapshotHistory)-limit:]...)
	}
}
