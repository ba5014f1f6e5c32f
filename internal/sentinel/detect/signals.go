package detect

import (
	"time"

	"pump-sentinel-sol/internal/sentinel/growth"
	"pump-sentinel-sol/internal/sentinel/state"
)

// ActivitySignal 活跃度复合信号：代币刚上线、持仓结构干净、
// 增长速度异常快，且三项同步变动检查全部通过。
// 每个条件单独记入 evidence，便于排查命中/未命中原因。
func (d *Detector) ActivitySignal(st *state.TokenState, rates growth.Rates, now time.Time) (bool, map[string]bool) {
	p := d.params.Activity
	latest := st.Latest()

	conds := map[string]bool{
		"age":            st.AgeSeconds(now) < p.MaxAgeSeconds,
		"holders":        latest.TotalHolders >= p.MinHolders && latest.TotalHolders <= p.MaxHolders,
		"max_holders":    st.MaxHolderCount <= p.MaxEverHolders,
		"pool_remaining": d.poolPctOK(st),
		"top_holder":     d.topHolderOK(st),
		"bundlers":       d.bundlersOK(st),
		"dev":            latest.DevHoldingPct <= p.DevNowMaxPct && st.MaxDevPct <= p.DevEverMaxPct,
		"snipers":        d.snipersOK(st),
		"insiders":       d.insidersOK(st),
		"liquidity":      latest.LiquidityUsd >= p.MinLiquidityUsd,
		"growth":         rates.HoldersPerMin >= p.MinHoldersPerMin,
		"no_bundler_sniper_sync": !d.BundlerSniperSync(st),
		"no_sniper_insider_sync": !d.SniperInsiderSync(st),
		"no_exit_sync":           !d.BundlerSniperExitSync(st),
	}

	return allTrue(conds), conds
}

// PumpSignal 拉盘复合信号：持仓与价格同时在涨、
// 有捆绑买入或新钱包涌入，且盘子已经有一定体量。
func (d *Detector) PumpSignal(st *state.TokenState, rates growth.Rates) (bool, map[string]bool) {
	p := d.params.Pump
	latest := st.Latest()

	freshInflow := latest.BundlerCount > 0 ||
		latest.FreshWalletCount >= p.MinFreshWallets ||
		latest.FreshWalletSol >= p.MinFreshSol

	conds := map[string]bool{
		"holders_growing": rates.HoldersPerMin > p.MinHoldersPerMin,
		"price_growing":   rates.PricePerMin > 0,
		"fresh_inflow":    freshInflow,
		"liquidity":       latest.LiquidityUsd >= p.MinLiquidityUsd,
		"market_cap":      latest.MarketCapUsd >= p.MinMarketCapUsd,
	}

	return allTrue(conds), conds
}

func allTrue(conds map[string]bool) bool {
	for _, ok := range conds {
		if !ok {
			return false
		}
	}
	return true
}

// poolPctOK 池子里未卖出的份额不能占大头
func (d *Detector) poolPctOK(st *state.TokenState) bool {
	pool, ok := st.Holders.PoolPct()
	if !ok {
		// 还没观测到池子地址时不按该项卡掉
		return true
	}
	return pool < d.params.Activity.MaxPoolPct
}

// topHolderOK 最大的干净持仓必须存在且占比受控
func (d *Detector) topHolderOK(st *state.TokenState) bool {
	top := st.Holders.TopCleanHolderPct(st.Deployer)
	return top > 0 && top <= d.params.Activity.MaxTopHolderPct
}

// bundlersOK dev 退出后捆绑持仓要落在健康区间，退出前只卡上限
func (d *Detector) bundlersOK(st *state.TokenState) bool {
	p := d.params.Activity
	if st.DevExited {
		after := st.MaxBundlerPctAfterDevExit
		if after < p.BundlersAfterDevExitMin || after > p.BundlersAfterDevExitMax {
			return false
		}
	}
	return st.MaxBundlerPctBeforeDevExit <= p.BundlersBeforeDevExitMax
}

// snipersOK 狙击持仓：数量受限，占比达标，
// 或者占比偏高但历史峰值已回落且出现过快速撤退
func (d *Detector) snipersOK(st *state.TokenState) bool {
	p := d.params.Activity
	latest := st.Latest()

	if latest.SniperCount > p.SnipersMaxCount {
		return false
	}
	if latest.SniperHoldingPct <= p.SnipersMaxPct {
		return true
	}
	peak := maxSniperPct(st.History)
	return peak > latest.SniperHoldingPct &&
		latest.SniperHoldingPct <= p.SnipersRapidMaxPct &&
		d.sniperRapidExitWithRatio(st, p.SnipersRapidRatio)
}

// insidersOK 内幕持仓的同款判定
func (d *Detector) insidersOK(st *state.TokenState) bool {
	p := d.params.Activity
	latest := st.Latest()

	if latest.InsiderHoldingPct <= p.InsidersMaxPct {
		return true
	}
	peak := maxInsiderPct(st.History)
	return peak > latest.InsiderHoldingPct &&
		latest.InsiderHoldingPct <= p.InsidersRapidMaxPct &&
		d.insiderRapidExitWithRatio(st, p.SnipersRapidRatio)
}

func maxSniperPct(samples []state.MetricSample) float64 {
	peak := 0.0
	for _, s := range samples {
		if s.SniperHoldingPct > peak {
			peak = s.SniperHoldingPct
		}
	}
	return peak
}

func maxInsiderPct(samples []state.MetricSample) float64 {
	peak := 0.0
	for _, s := range samples {
		if s.InsiderHoldingPct > peak {
			peak = s.InsiderHoldingPct
		}
	}
	return peak
}
