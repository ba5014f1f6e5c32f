package alert

import (
	"time"

	"pump-sentinel-sol/internal/sentinel/types"
)

// Config 告警节流参数
type Config struct {
	CooldownSeconds int `json:"cooldown_seconds" yaml:"cooldown_seconds"` // 同类别冷却窗口（秒）
}

func DefaultConfig() Config {
	return Config{CooldownSeconds: 900}
}

// Policy 单个代币的告警节流：同类别 900 秒内只发一次，
// 但类别切换时立刻放行一次——类别变化本身就是信息。
// 非并发安全，每个 tracker 持有自己的实例。
type Policy struct {
	cooldown     time.Duration
	lastByCat    map[types.AlertCategory]time.Time
	lastCategory types.AlertCategory
	hasEmitted   bool
}

func NewPolicy(cfg Config) *Policy {
	if cfg.CooldownSeconds <= 0 {
		cfg.CooldownSeconds = DefaultConfig().CooldownSeconds
	}
	return &Policy{
		cooldown:  time.Duration(cfg.CooldownSeconds) * time.Second,
		lastByCat: make(map[types.AlertCategory]time.Time, 8),
	}
}

// ShouldEmit 判定该类别此刻是否允许发送。只读，不改状态。
func (p *Policy) ShouldEmit(category types.AlertCategory, now time.Time) bool {
	if p.hasEmitted && category != p.lastCategory {
		return true
	}
	last, ok := p.lastByCat[category]
	if !ok {
		return true
	}
	return now.Sub(last) >= p.cooldown
}

// Record 记录一次实际发送
func (p *Policy) Record(category types.AlertCategory, now time.Time) {
	p.lastByCat[category] = now
	p.lastCategory = category
	p.hasEmitted = true
}

// Emit ShouldEmit 与 Record 的组合，放行时顺手记账
func (p *Policy) Emit(category types.AlertCategory, now time.Time) bool {
	if !p.ShouldEmit(category, now) {
		return false
	}
	p.Record(category, now)
	return true
}
