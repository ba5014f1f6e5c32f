package taskworker

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/mr-tron/base58"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/metrics"
	"pump-sentinel-sol/internal/sentinel/types"
)

// MintMetaConf 链上 mint 元数据拉取配置
type MintMetaConf struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	TimeoutMs       int    `json:"timeout_ms" yaml:"timeout_ms"`
	IntervalSeconds int    `json:"interval_seconds" yaml:"interval_seconds"`
	BatchSize       int    `json:"batch_size" yaml:"batch_size"`
}

// MintMetaListener RPC 元数据完成监听器
type MintMetaListener interface {
	OnMintMetaDone(results []TaskResult[types.MintMeta])
}

// MintMetaWorker 批量拉取 SPL mint 账户，补齐 supply 与 mint authority。
// 上游 payload 缺 supply 时，持仓占比就靠这里兜底。
type MintMetaWorker struct {
	*BaseTaskWorker[types.MintMeta]
	cli         *client.Client
	timeout     time.Duration
	listener    MintMetaListener
	lastLogTime atomic.Int64
}

func NewMintMetaWorker(conf MintMetaConf, listener MintMetaListener) *MintMetaWorker {
	if conf.TimeoutMs <= 0 {
		conf.TimeoutMs = 8000
	}
	if conf.IntervalSeconds <= 0 {
		conf.IntervalSeconds = 10
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 100
	}

	worker := &MintMetaWorker{
		cli:      client.NewClient(conf.Endpoint),
		timeout:  time.Duration(conf.TimeoutMs) * time.Millisecond,
		listener: listener,
	}

	base := NewBaseTaskWorker[types.MintMeta](
		"mint_meta",
		time.Duration(conf.IntervalSeconds)*time.Second,
		conf.BatchSize,
		worker.execute,
		worker.handleResults,
		RemoveOnSuccess,
	)
	worker.BaseTaskWorker = base
	return worker
}

func (w *MintMetaWorker) handleResults(results []TaskResult[types.MintMeta]) {
	if w.listener != nil {
		w.listener.OnMintMetaDone(results)
	}
}

func (w *MintMetaWorker) execute(ctx context.Context, items []TokenTask) (results []TaskResult[types.MintMeta], err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[MintMetaWorker] panic in execute: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
			results = nil
		}
	}()

	if len(items) == 0 {
		return nil, nil
	}

	tokens := make([]string, len(items))
	for i, item := range items {
		tokens[i] = item.Token
	}

	reqCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	infos, rpcErr := w.cli.GetMultipleAccounts(reqCtx, tokens)
	if rpcErr != nil {
		if utils.ThrottleLog(&w.lastLogTime, 3*time.Second) {
			logger.Errorf("[MintMetaWorker] GetMultipleAccounts failed: %v", rpcErr)
		}
		metrics.MintMetaLookups.WithLabelValues("rpc_error").Inc()
		return nil, rpcErr
	}
	if len(infos) != len(items) {
		if utils.ThrottleLog(&w.lastLogTime, 3*time.Second) {
			logger.Errorf("[MintMetaWorker] account count mismatch: got %d, expected %d", len(infos), len(items))
		}
		return nil, fmt.Errorf("GetMultipleAccounts returned %d accounts, expected %d", len(infos), len(items))
	}

	results = make([]TaskResult[types.MintMeta], len(items))
	for i, item := range items {
		meta := parseMintAccount(item.Token, infos[i].Data)
		if meta.IsBurned {
			metrics.MintMetaLookups.WithLabelValues("burned").Inc()
		} else {
			metrics.MintMetaLookups.WithLabelValues("ok").Inc()
		}
		results[i] = TaskResult[types.MintMeta]{Item: item, Data: meta, Err: nil}
	}
	return results, nil
}

// parseMintAccount 解析 SPL Token MintLayout：
// 0-3   : mintAuthorityOption (u32)
// 4-35  : mintAuthority (PublicKey, 32 bytes)
// 36-43 : supply (u64, little-endian)
// 44    : decimals (u8)
func parseMintAccount(token string, data []byte) types.MintMeta {
	meta := types.MintMeta{Token: token}

	// 长度不足视为已销毁
	if len(data) < 45 {
		meta.IsBurned = true
		return meta
	}

	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		meta.MintAuthority = base58.Encode(data[4:36])
	}

	supply := binary.LittleEndian.Uint64(data[36:44])
	if supply == 0 {
		meta.IsBurned = true
		return meta
	}

	decimals := data[44]
	meta.TotalSupply = utils.AmountToFloat64(utils.Uint64ToStr(supply), decimals)
	return meta
}
