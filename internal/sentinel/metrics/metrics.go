package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 域内指标。promauto 注册到默认 registry，由 /metrics 统一暴露。
var (
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "frames_total",
		Help:      "Decoded upstream frames by message kind.",
	}, []string{"kind"})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "events_total",
		Help:      "Classified events by event kind.",
	}, []string{"event"})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "alerts_total",
		Help:      "Emitted alerts by category.",
	}, []string{"category"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "alerts_suppressed_total",
		Help:      "Alerts dropped by the per-category cooldown.",
	}, []string{"category"})

	TrackedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pump_sentinel",
		Name:      "tracked_tokens",
		Help:      "Tokens currently tracked.",
	})

	ResolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "market_resolution_failures_total",
		Help:      "Non-200 markets-per-token responses.",
	})

	WsReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "ws_reconnects_total",
		Help:      "Upstream websocket reconnect attempts.",
	})

	MintMetaLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pump_sentinel",
		Name:      "mint_meta_lookups_total",
		Help:      "On-chain mint metadata lookups by result.",
	}, []string{"result"})
)
