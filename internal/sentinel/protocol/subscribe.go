package protocol

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// 帧头动作码
const (
	actionSubscribe int64 = 4 // [4, code, path]
	actionRequest   int64 = 8 // [8, code, path, request_id, payload?]
)

// SubscribeTokenStats 订阅 token 级 fast-stats 推送
func SubscribeTokenStats(marketID string) ([]byte, error) {
	path := fmt.Sprintf("/fast-stats/encoded-tokens/solana-%s/on-fast-stats-update", marketID)
	return msgpack.Marshal([]any{actionSubscribe, CodeTokenStats, path})
}

// SubscribeMarketStats 订阅 market 级 fast-stats 推送
func SubscribeMarketStats(marketID string) ([]byte, error) {
	path := fmt.Sprintf("/fast-stats/encoded-markets/solana-%s/on-auto-migrating-market-stats-update", marketID)
	return msgpack.Marshal([]any{actionSubscribe, CodeMarketStats, path})
}

// SubscribeTopHolders 订阅 top-holders 表推送
func SubscribeTopHolders(token string) ([]byte, error) {
	path := fmt.Sprintf("/holders/chains/SOLANA/tokenAddress/%s/subscribe-top-holders-v3", token)
	return msgpack.Marshal([]any{actionSubscribe, CodeTopHolders, path})
}

// RequestMarkets 请求 token → market 解析，返回帧与本次请求 ID。
// 应答以 [9, 45, status, payload] 推回同一连接。
func RequestMarkets(token string) ([]byte, string, error) {
	reqID := uuid.NewString()
	payload := map[string]any{
		"tokens": []any{
			map[string]any{"chain": "SOLANA", "tokenAddress": token},
		},
	}
	frame, err := msgpack.Marshal([]any{actionRequest, CodeMarketsPerToken, "/prices/prices/markets-per-token", reqID, payload})
	if err != nil {
		return nil, "", err
	}
	return frame, reqID, nil
}
