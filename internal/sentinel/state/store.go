package state

import (
	"strings"
	"sync"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/metrics"
	"pump-sentinel-sol/internal/sentinel/protocol"
	"pump-sentinel-sol/internal/sentinel/types"
)

// Store 持有全部被跟踪代币的状态。
// map 的增删查由内部锁保护；单个 TokenState 的字段只允许
// 该代币的 tracker 协程通过 Apply 修改（单写者约束）。
type Store struct {
	mu         sync.RWMutex
	cfg        Config
	states     map[string]*TokenState
	pools      map[string]struct{} // 已知池子地址允许名单，初始化后只读
	deployers  map[string]string   // 侧信道补齐的 deployer
	metaSupply map[string]float64  // 侧信道补齐的链上 supply
	markets    map[string]string   // 已解析的 marketID，供 transport 轮询
}

func NewStore(cfg Config, poolAllowList []string) *Store {
	pools := make(map[string]struct{}, len(poolAllowList))
	for _, addr := range poolAllowList {
		pools[addr] = struct{}{}
	}
	return &Store{
		cfg:        cfg.withDefaults(),
		states:     make(map[string]*TokenState, 64),
		pools:      pools,
		deployers:  make(map[string]string, 64),
		metaSupply: make(map[string]float64, 64),
		markets:    make(map[string]string, 64),
	}
}

func (s *Store) Config() Config { return s.cfg }

// GetOrCreate 取出或创建代币状态
func (s *Store) GetOrCreate(token string, now time.Time) *TokenState {
	s.mu.RLock()
	st, ok := s.states[token]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.states[token]; ok {
		return st
	}
	st = newTokenState(token, now)
	if dep, ok := s.deployers[token]; ok {
		st.Deployer = dep
	}
	s.states[token] = st
	return st
}

func (s *Store) Get(token string) (*TokenState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[token]
	return st, ok
}

// Remove 摘除代币状态。调用方必须保证其 tracker 已停止，
// 摘除后不允许任何后台任务再持有该状态的引用。
func (s *Store) Remove(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, token)
	delete(s.deployers, token)
	delete(s.metaSupply, token)
	delete(s.markets, token)
}

func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func (s *Store) Tokens() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.states))
	for token := range s.states {
		out = append(out, token)
	}
	return out
}

// SetDeployer 侧信道写入 deployer（发现通道或 RPC 元数据）
func (s *Store) SetDeployer(token, wallet string) {
	if wallet == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deployers[token] = wallet
}

// SetMintMeta 写入 RPC 元数据：supply 兜底与 deployer 兜底
func (s *Store) SetMintMeta(meta types.MintMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if meta.TotalSupply > 0 {
		s.metaSupply[meta.Token] = meta.TotalSupply
	}
	if meta.MintAuthority != "" {
		if _, ok := s.deployers[meta.Token]; !ok {
			s.deployers[meta.Token] = meta.MintAuthority
		}
	}
}

// MarketIDOf 已解析的 marketID，未解析时为空串
func (s *Store) MarketIDOf(token string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets[token]
}

func (s *Store) sideChannel(token string) (deployer string, supply float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deployers[token], s.metaSupply[token]
}

// Apply 把一个分类事件应用到代币状态，是状态变更的原子单位。
// 已知通道的畸形 payload 只记 warn 并跳过对应字段，绝不让一条
// 坏消息中断后续消息的摄入。
// 状态必须已由 Track 建好：已摘除代币的迟到帧直接丢弃，
// 否则孤儿状态会在 Remove 之后复活且永远没人再清理。
func (s *Store) Apply(token string, ev protocol.ClassifiedEvent, now time.Time) {
	st, ok := s.Get(token)
	if !ok {
		logger.Debugf("[Store] drop event for untracked token %s", token)
		return
	}

	switch ev.Kind {
	case protocol.EventMarketStats, protocol.EventTokenStats:
		s.applyFastStats(st, ev.Payload, now)
	case protocol.EventTopHolders:
		s.applyTopHolders(st, ev.Payload, now)
	case protocol.EventMarketResolution:
		s.applyMarketResolution(st, ev)
	}
}

// ==================== fast-stats ====================

func (s *Store) applyFastStats(st *TokenState, payload types.Value, now time.Time) {
	if !payload.IsMap() {
		logger.Warnf("[Store] %s fast-stats payload is not a map, kind=%s", st.Address, payload.Kind())
		return
	}

	switch payload.Field("type").StrOr("") {
	case "init":
		s.applyFastStatsInit(st, payload.Field("snapshot"), now)
	case "update":
		s.applyFastStatsUpdate(st, payload.Field("update"), now)
	default:
		logger.Warnf("[Store] %s fast-stats payload with unknown type %q", st.Address, payload.Field("type").StrOr(""))
	}
}

// init 全量覆盖基线并重置样本窗口，重复投递的 init 因此天然幂等
func (s *Store) applyFastStatsInit(st *TokenState, snap types.Value, now time.Time) {
	if !snap.IsMap() {
		logger.Warnf("[Store] %s fast-stats init without snapshot object", st.Address)
		return
	}

	st.Symbol = snap.Field("baseTokenSymbol").StrOr(st.Symbol)
	st.Name = snap.Field("baseTokenName").StrOr(st.Name)

	if created := snap.Field("marketCreatedAt").IntOr(0); created > 0 {
		st.CreatedAt = time.UnixMilli(int64(utils.ToMilliseconds(created)))
	}
	if dep := snap.Field("baseTokenAudit").Field("deployerAddress").StrOr(""); dep != "" {
		st.Deployer = dep
	}

	sample := MetricSample{
		Timestamp:    now,
		PriceUsd:     snap.Field("basePriceInUsdUi").FloatOr(0),
		LiquidityUsd: snap.Field("liquidityInUsdUi").FloatOr(0),
		MarketCapUsd: snap.Field("marketCapUsdUi").FloatOr(0),
		TotalSupply:  snap.Field("baseTokenTotalSupply").FloatOr(0),
		TotalHolders: snap.Field("totalHolders").IntOr(0),
	}
	mergeGaze(&sample, snap.Field("pumpFunGaze"))
	s.fillSupplyFallback(st, &sample)

	st.History = st.History[:0]
	st.History = append(st.History, sample)
	s.afterSample(st, MetricSample{}, sample, now)
}

// update 只合并 delta 中出现的字段，其余沿用最新样本
func (s *Store) applyFastStatsUpdate(st *TokenState, upd types.Value, now time.Time) {
	if !upd.IsMap() {
		logger.Warnf("[Store] %s fast-stats update without update object", st.Address)
		return
	}

	prev := st.Latest()
	sample := prev
	sample.Timestamp = now

	if v := upd.Field("basePriceInUsdUi"); !v.IsNull() {
		sample.PriceUsd = v.FloatOr(sample.PriceUsd)
	}
	if v := upd.Field("liquidityInUsdUi"); !v.IsNull() {
		sample.LiquidityUsd = v.FloatOr(sample.LiquidityUsd)
	}
	if v := upd.Field("totalHolders"); !v.IsNull() {
		sample.TotalHolders = v.IntOr(sample.TotalHolders)
	}
	if v := upd.Field("baseTokenTotalSupply"); !v.IsNull() {
		sample.TotalSupply = v.FloatOr(sample.TotalSupply)
	}
	if v := upd.Field("marketCapUsdUi"); !v.IsNull() {
		sample.MarketCapUsd = v.FloatOr(sample.MarketCapUsd)
	}
	mergeGaze(&sample, upd.Field("pumpFunGaze"))
	s.fillSupplyFallback(st, &sample)

	st.History = append(st.History, sample)
	st.pruneHistory(time.Duration(s.cfg.RetentionSeconds) * time.Second)
	s.afterSample(st, prev, sample, now)
}

// mergeGaze 合并 pumpFunGaze 嵌套字段。
// bundlesHoldingPcnt 既可能是数字也可能是 {current, ath} 对象。
func mergeGaze(sample *MetricSample, gaze types.Value) {
	if !gaze.IsMap() {
		return
	}

	if v := gaze.Field("devHoldingPcnt"); !v.IsNull() {
		sample.DevHoldingPct = v.FloatOr(sample.DevHoldingPct)
	}
	if v := gaze.Field("snipersHoldingPcnt"); !v.IsNull() {
		sample.SniperHoldingPct = v.FloatOr(sample.SniperHoldingPct)
	}
	if v := gaze.Field("insidersHoldingPcnt"); !v.IsNull() {
		sample.InsiderHoldingPct = v.FloatOr(sample.InsiderHoldingPct)
	}
	if v := gaze.Field("totalSnipers"); !v.IsNull() {
		sample.SniperCount = v.IntOr(sample.SniperCount)
	}
	if v := gaze.Field("totalBundlesCount"); !v.IsNull() {
		sample.BundlerCount = v.IntOr(sample.BundlerCount)
	}
	if v := gaze.Field("totalSupply"); !v.IsNull() {
		sample.TotalSupply = v.FloatOr(sample.TotalSupply)
	}
	if fresh := gaze.Field("freshWalletBuys"); fresh.IsMap() {
		sample.FreshWalletCount = fresh.Field("count").IntOr(sample.FreshWalletCount)
		sample.FreshWalletSol = fresh.Field("sol").FloatOr(sample.FreshWalletSol)
	}
	if v := gaze.Field("bundlesHoldingPcnt"); !v.IsNull() {
		if v.IsMap() {
			sample.BundlerHoldingPct = v.Field("current").FloatOr(sample.BundlerHoldingPct)
		} else {
			sample.BundlerHoldingPct = v.FloatOr(sample.BundlerHoldingPct)
		}
	}
}

func (s *Store) fillSupplyFallback(st *TokenState, sample *MetricSample) {
	if sample.TotalSupply > 0 {
		return
	}
	_, supply := s.sideChannel(st.Address)
	sample.TotalSupply = supply
}

// afterSample 样本落地后的统一收尾：dev 退出锁存、高水位、持仓快照
func (s *Store) afterSample(st *TokenState, prev, cur MetricSample, now time.Time) {
	// dev 退出是一次性锁存：之前 >0、现在跌破阈值才触发，之后永不重置。
	// dev 钱包重新买入按新钱包对待。
	if !st.DevExited && prev.DevHoldingPct > 0 && cur.DevHoldingPct <= s.cfg.DevExitPct {
		st.DevExited = true
		st.DevExitTime = cur.Timestamp
		logger.Infof("[Store] %s dev exited: %.2f%% -> %.2f%%", st.Address, prev.DevHoldingPct, cur.DevHoldingPct)
	}

	if cur.DevHoldingPct > st.MaxDevPct {
		st.MaxDevPct = cur.DevHoldingPct
	}
	if cur.TotalHolders > st.MaxHolderCount {
		st.MaxHolderCount = cur.TotalHolders
	}

	// dev 退出前后的操盘手法差异很大，捆绑持仓高水位分两段记录
	if st.DevExited {
		if cur.BundlerHoldingPct > st.MaxBundlerPctAfterDevExit {
			st.MaxBundlerPctAfterDevExit = cur.BundlerHoldingPct
		}
	} else {
		if cur.BundlerHoldingPct > st.MaxBundlerPctBeforeDevExit {
			st.MaxBundlerPctBeforeDevExit = cur.BundlerHoldingPct
		}
	}

	s.maybeRecordSnapshot(st, now)
}

// ==================== top-holders ====================

func (s *Store) applyTopHolders(st *TokenState, payload types.Value, now time.Time) {
	if !payload.IsMap() {
		logger.Warnf("[Store] %s top-holders payload is not a map, kind=%s", st.Address, payload.Kind())
		return
	}

	switch payload.Field("type").StrOr("") {
	case "init":
		rows := payload.Field("snapshot").Field("allEntries")
		if !rows.IsArray() {
			logger.Warnf("[Store] %s top-holders init without allEntries", st.Address)
			return
		}
		st.Holders.ApplyInit(rows.Items(), now)

	case "update":
		upd := payload.Field("update")
		if !upd.IsMap() {
			logger.Warnf("[Store] %s top-holders update without update object", st.Address)
			return
		}
		for _, row := range upd.Field("deleted").Items() {
			st.Holders.Delete(row)
		}
		for _, row := range upd.Field("updated").Items() {
			if !st.Holders.Upsert(row, now) {
				logger.Warnf("[Store] %s top-holders row without wallet, skipped", st.Address)
			}
		}

	default:
		logger.Warnf("[Store] %s top-holders payload with unknown type %q", st.Address, payload.Field("type").StrOr(""))
		return
	}

	st.Holders.Recompute(st.Latest().TotalSupply, s.pools, s.cfg.PoolSingleHolderPct)
	s.maybeRecordSnapshot(st, now)
}

// maybeRecordSnapshot 干净持仓不足时不记快照——样本太少时的
// 结构分析只会产生噪声
func (s *Store) maybeRecordSnapshot(st *TokenState, now time.Time) {
	deployer := st.Deployer
	if deployer == "" {
		deployer, _ = s.sideChannel(st.Address)
	}

	if st.Holders.CleanHolderCount(deployer) < s.cfg.MinSnapshotHolders {
		return
	}

	percentages := st.Holders.CleanTopPercentages(deployer, 10)
	top3Snipers := 0
	for i, p := range percentages {
		if i >= 3 {
			break
		}
		if p > s.cfg.SniperTopPct {
			top3Snipers++
		}
	}

	st.appendSnapshot(HolderSnapshot{
		Timestamp:       now,
		Percentages:     percentages,
		Top3SniperCount: top3Snipers,
		TotalSniperPct:  st.Latest().SniperHoldingPct,
	}, s.cfg.SnapshotCap)
}

// ==================== market resolution ====================

func (s *Store) applyMarketResolution(st *TokenState, ev protocol.ClassifiedEvent) {
	if ev.HasStatus && ev.Status != protocol.StatusOK {
		st.ResolutionFailures++
		metrics.ResolutionFailures.Inc()
		logger.Warnf("[Store] %s market resolution failed with status %d", st.Address, ev.Status)
		return
	}

	markets := ev.Payload.Field("markets").Field("SOLANA")
	if !markets.IsMap() {
		logger.Warnf("[Store] %s market resolution payload without markets.SOLANA", st.Address)
		return
	}

	for token, list := range markets.Fields() {
		if token != st.Address || list.Len() == 0 {
			continue
		}
		marketID := list.At(0).Field("marketId").StrOr("")
		marketID = strings.TrimPrefix(marketID, "solana-")
		if marketID != "" {
			st.MarketID = marketID
			s.mu.Lock()
			s.markets[st.Address] = marketID
			s.mu.Unlock()
			logger.Infof("[Store] %s resolved market %s", st.Address, marketID)
		}
	}
}
