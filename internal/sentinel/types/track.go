package types

// TrackRequest 发现通道下发的跟踪请求（JSON）。
// Kafka 与 RocketMQ 两条发现通道使用同一 schema。
type TrackRequest struct {
	Token        string `json:"token"`                   // 代币 mint 地址
	Symbol       string `json:"symbol,omitempty"`        // 展示符号
	Deployer     string `json:"deployer,omitempty"`      // 部署者钱包，可为空，后续由元数据补齐
	MarketID     string `json:"market_id,omitempty"`     // 已知市场 ID，可为空，由行情通道解析
	DiscoveredAt int64  `json:"discovered_at,omitempty"` // 发现时间，秒或毫秒
	Source       string `json:"source,omitempty"`        // 来源标识（twitter / scanner 等）
}

// MintMeta RPC 元数据补齐结果
type MintMeta struct {
	Token         string  // 代币地址
	TotalSupply   float64 // 链上 supply（原始单位）
	MintAuthority string  // mint 权限账户，作为 deployer 的兜底
	IsBurned      bool    // supply 为 0 或账户不存在
}
