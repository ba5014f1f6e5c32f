package state

import (
	"sort"
	"time"

	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/types"
)

// top-holders 行是定长数组，各字段按下标取值
const (
	rowIdxWallet  = 1  // 钱包地址
	rowIdxBalance = 2  // 余额（原始单位，可能是数字或字符串）
	rowIdxInsider = 4  // 内幕标记
	rowIdxBundler = 15 // 捆绑标记
)

// HolderRecord 当前 top-holder 表中的一条记录
type HolderRecord struct {
	Wallet          string
	Balance         float64
	PercentOfSupply float64
	IsInsider       bool
	IsBundler       bool
	IsPool          bool
	FirstSeen       time.Time
}

// HolderTable 单个代币的当前 top-holder 表。
// 流动性池地址一经识别即粘滞，不随后续更新摇摆。
type HolderTable struct {
	records  map[string]*HolderRecord
	poolAddr string
}

func NewHolderTable() *HolderTable {
	return &HolderTable{records: make(map[string]*HolderRecord, 32)}
}

func (t *HolderTable) Len() int { return len(t.records) }

func (t *HolderTable) PoolAddress() string { return t.poolAddr }

// ApplyInit 用 allEntries 全量重建表。第一行约定为流动性池。
func (t *HolderTable) ApplyInit(rows []types.Value, now time.Time) {
	utils.ClearOrResetMap(&t.records, 256, 32)
	for i, row := range rows {
		rec := t.upsertRow(row, now)
		if i == 0 && rec != nil && t.poolAddr == "" {
			t.poolAddr = rec.Wallet
		}
	}
}

// Upsert 应用一条 updated 行，返回是否有效
func (t *HolderTable) Upsert(row types.Value, now time.Time) bool {
	return t.upsertRow(row, now) != nil
}

func (t *HolderTable) upsertRow(row types.Value, now time.Time) *HolderRecord {
	wallet := row.At(rowIdxWallet).StrOr("")
	if wallet == "" {
		return nil
	}

	rec, ok := t.records[wallet]
	if !ok {
		rec = &HolderRecord{Wallet: wallet, FirstSeen: now}
		t.records[wallet] = rec
	}
	rec.Balance = row.At(rowIdxBalance).FloatOr(0)
	rec.IsInsider = row.At(rowIdxInsider).BoolOr(false)
	rec.IsBundler = row.At(rowIdxBundler).BoolOr(false)
	return rec
}

// Delete 应用一条 deleted 行
func (t *HolderTable) Delete(row types.Value) {
	wallet := row.At(rowIdxWallet).StrOr("")
	if wallet == "" {
		return
	}
	delete(t.records, wallet)
}

// Recompute 按当前 supply 刷新占比并识别池子。
// 池子判定：允许名单命中，或唯一最大持仓超过 singlePoolPct（识别后粘滞）。
func (t *HolderTable) Recompute(totalSupply float64, poolAllowList map[string]struct{}, singlePoolPct float64) {
	var largest *HolderRecord
	for _, rec := range t.records {
		rec.PercentOfSupply = utils.SafeDiv(rec.Balance, totalSupply) * 100
		if _, ok := poolAllowList[rec.Wallet]; ok && t.poolAddr == "" {
			t.poolAddr = rec.Wallet
		}
		if largest == nil || rec.Balance > largest.Balance {
			largest = rec
		}
	}

	if t.poolAddr == "" && largest != nil && largest.PercentOfSupply > singlePoolPct {
		t.poolAddr = largest.Wallet
	}

	for _, rec := range t.records {
		rec.IsPool = rec.Wallet == t.poolAddr
	}
}

// PoolPct 流动性池当前占比。池子地址尚未识别时 ok 为 false。
func (t *HolderTable) PoolPct() (float64, bool) {
	if t.poolAddr == "" {
		return 0, false
	}
	rec, ok := t.records[t.poolAddr]
	if !ok {
		return 0, false
	}
	return rec.PercentOfSupply, true
}

// Sorted 返回按余额降序的记录，余额相同时用地址哈希稳定排序
func (t *HolderTable) Sorted() []*HolderRecord {
	out := make([]*HolderRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return utils.StableDesc(out[i].Balance, out[j].Balance,
			types.AddressHash(out[i].Wallet), types.AddressHash(out[j].Wallet))
	})
	return out
}

// CleanTopPercentages 返回排除 pool/bundler/insider/dev 后的 top-N 占比（降序）。
// deployer 记录的部署者钱包永远不计入"干净"持仓。
func (t *HolderTable) CleanTopPercentages(deployer string, limit int) []float64 {
	var out []float64
	for _, rec := range t.Sorted() {
		if rec.IsPool || rec.IsBundler || rec.IsInsider {
			continue
		}
		if deployer != "" && rec.Wallet == deployer {
			continue
		}
		out = append(out, rec.PercentOfSupply)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// TopCleanHolderPct 最大"干净"持仓占比，没有则为 0
func (t *HolderTable) TopCleanHolderPct(deployer string) float64 {
	top := t.CleanTopPercentages(deployer, 1)
	if len(top) == 0 {
		return 0
	}
	return top[0]
}

// CleanHolderCount 排除 pool/bundler/insider/dev 后的持仓数
func (t *HolderTable) CleanHolderCount(deployer string) int {
	n := 0
	for _, rec := range t.records {
		if rec.IsPool || rec.IsBundler || rec.IsInsider {
			continue
		}
		if deployer != "" && rec.Wallet == deployer {
			continue
		}
		n++
	}
	return n
}
