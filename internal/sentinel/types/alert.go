package types

// AlertCategory 告警类别，冷却窗口按类别独立计算
type AlertCategory string

const (
	CategoryActive            AlertCategory = "active"              // 活跃度信号
	CategoryPump              AlertCategory = "pump"                // 拉盘信号
	CategorySniperRapidExit   AlertCategory = "sniper_rapid_exit"   // 狙击盘快速撤退
	CategoryInsiderRapidExit  AlertCategory = "insider_rapid_exit"  // 内幕盘快速撤退
	CategoryBundlerSniperSync AlertCategory = "bundler_sniper_sync" // 捆绑/狙击同步变动
	CategorySniperInsiderSync AlertCategory = "sniper_insider_sync" // 狙击/内幕同步变动
	CategoryBundlerSniperExit AlertCategory = "bundler_sniper_exit" // 捆绑/狙击同步撤退
	CategoryHolderPattern     AlertCategory = "holder_pattern"      // 持仓结构异常
)

// RiskAssessment 单个检测器的评估结果。
// evidence 为展示用的不透明键值对，下游只负责格式化，不解释语义。
type RiskAssessment struct {
	Token     string            `json:"token"`
	Category  AlertCategory     `json:"category"`
	Triggered bool              `json:"triggered"`
	Evidence  map[string]string `json:"evidence,omitempty"`
}

// AlertTask 待推送的告警，push worker 按 Token+Category 去重
type AlertTask struct {
	Token      string            `json:"token"`
	Symbol     string            `json:"symbol,omitempty"`
	Category   AlertCategory     `json:"category"`
	Evidence   map[string]string `json:"evidence,omitempty"`
	AlertAtMs  int64             `json:"alert_at_ms"`
	MarketID   string            `json:"market_id,omitempty"`
	PriceUsd   float64           `json:"price_usd,omitempty"`
	HoldersNow int64             `json:"holders_now,omitempty"`
}

// DedupeKey 推送去重键
func (t *AlertTask) DedupeKey() string {
	return t.Token + "|" + string(t.Category)
}
