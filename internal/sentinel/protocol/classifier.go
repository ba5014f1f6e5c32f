package protocol

import (
	"pump-sentinel-sol/internal/sentinel/types"
)

// 上游通道标识，(channel_kind, channel_code) 二元组决定消息路由
const (
	ChannelKindStream   int64 = 5 // 订阅推送
	ChannelKindResponse int64 = 9 // 请求应答

	CodeTokenStats      int64 = 1  // token 级 fast-stats
	CodeTopHolders      int64 = 38 // top-holders 表
	CodeMarketStats     int64 = 43 // market 级 fast-stats
	CodeMarketsPerToken int64 = 45 // token → market 解析

	StatusOK int64 = 200
)

// EventKind 分类后的事件类型
type EventKind uint8

const (
	EventMarketStats EventKind = iota
	EventTokenStats
	EventTopHolders
	EventMarketResolution
)

func (k EventKind) String() string {
	switch k {
	case EventMarketStats:
		return "market_stats"
	case EventTokenStats:
		return "token_stats"
	case EventTopHolders:
		return "top_holders"
	case EventMarketResolution:
		return "market_resolution"
	default:
		return "unknown"
	}
}

// ClassifiedEvent 分类结果，不可变，按值传递给状态层
type ClassifiedEvent struct {
	Kind        EventKind
	ChannelKind int64
	ChannelCode int64
	Status      int64 // 仅 market_resolution 有效
	HasStatus   bool
	Payload     types.Value
}

// Classify 根据帧头两个整数路由消息。
// 只有形如 [channel_kind, channel_code, ...] 的结构化数组可分类；
// 未知 (kind, code) 组合返回 false——上游随时可能新增通道，
// 不认识的组合必须静默丢弃而不是报错。
func Classify(msg DecodedMessage) (ClassifiedEvent, bool) {
	if msg.Kind != MsgStructured || !msg.Value.IsArray() || msg.Value.Len() < 2 {
		return ClassifiedEvent{}, false
	}

	head0 := msg.Value.At(0)
	head1 := msg.Value.At(1)
	if head0.Kind() != types.KindInt || head1.Kind() != types.KindInt {
		return ClassifiedEvent{}, false
	}

	kind := head0.IntOr(0)
	code := head1.IntOr(0)

	switch {
	case kind == ChannelKindStream && code == CodeMarketStats:
		return ClassifiedEvent{
			Kind:        EventMarketStats,
			ChannelKind: kind,
			ChannelCode: code,
			Payload:     msg.Value.At(2),
		}, true

	case kind == ChannelKindStream && code == CodeTokenStats:
		return ClassifiedEvent{
			Kind:        EventTokenStats,
			ChannelKind: kind,
			ChannelCode: code,
			Payload:     msg.Value.At(2),
		}, true

	case kind == ChannelKindStream && code == CodeTopHolders:
		return ClassifiedEvent{
			Kind:        EventTopHolders,
			ChannelKind: kind,
			ChannelCode: code,
			Payload:     msg.Value.At(2),
		}, true

	case kind == ChannelKindResponse && code == CodeMarketsPerToken:
		status := msg.Value.At(2)
		if status.Kind() != types.KindInt {
			return ClassifiedEvent{}, false
		}
		ev := ClassifiedEvent{
			Kind:        EventMarketResolution,
			ChannelKind: kind,
			ChannelCode: code,
			Status:      status.IntOr(0),
			HasStatus:   true,
		}
		if ev.Status == StatusOK {
			ev.Payload = msg.Value.At(3)
		}
		return ev, true

	default:
		return ClassifiedEvent{}, false
	}
}
