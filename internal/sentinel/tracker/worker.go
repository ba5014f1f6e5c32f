package tracker

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/utils"
	"pump-sentinel-sol/internal/sentinel/alert"
	"pump-sentinel-sol/internal/sentinel/detect"
	"pump-sentinel-sol/internal/sentinel/growth"
	"pump-sentinel-sol/internal/sentinel/metrics"
	"pump-sentinel-sol/internal/sentinel/protocol"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/types"
)

// ==========================================
// 类型定义与结构体
// ==========================================

type MsgType uint8

const (
	MsgTypeFrame    MsgType = iota // 上游 websocket 原始帧
	MsgTypeEvaluate                // 周期性评估
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeFrame:
		return "frame"
	case MsgTypeEvaluate:
		return "evaluate"
	default:
		return "unknown"
	}
}

type Msg struct {
	Type MsgType
	Data any
}

// AlertSink 告警出口，由 push worker 实现
type AlertSink interface {
	EnqueueAlert(task *types.AlertTask)
}

// TokenWorker 单个代币的跟踪协程。
// 该代币的全部状态变更都在这一个协程里完成，状态层因此无锁。
type TokenWorker struct {
	msgChan chan *Msg
	ctx     context.Context
	cancel  func(err error)

	token    string
	store    *state.Store
	detector *detect.Detector
	policy   *alert.Policy
	sink     AlertSink

	lastActivityMs  atomic.Int64 // 最近一次有效帧时间，manager 据此过期
	lastSendLogTime atomic.Int64
	evalInterval    time.Duration
}

func newTokenWorker(
	token string,
	store *state.Store,
	detector *detect.Detector,
	policy *alert.Policy,
	sink AlertSink,
	queueSize int,
	evalInterval time.Duration,
) *TokenWorker {
	ctx, cancel := context.WithCancelCause(context.Background())
	w := &TokenWorker{
		msgChan:      make(chan *Msg, queueSize),
		ctx:          ctx,
		cancel:       cancel,
		token:        token,
		store:        store,
		detector:     detector,
		policy:       policy,
		sink:         sink,
		evalInterval: evalInterval,
	}
	w.lastActivityMs.Store(time.Now().UnixMilli())
	return w
}

func (w *TokenWorker) Start() {
	ticker := time.NewTicker(w.evalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case msg := <-w.msgChan:
			w.handleMsg(msg)

		case <-ticker.C:
			w.handleMsg(&Msg{Type: MsgTypeEvaluate})
		}
	}
}

func (w *TokenWorker) Stop() {
	w.cancel(errors.New("tracker stop"))
}

// LastActivityMs 最近一次有效帧的毫秒时间戳
func (w *TokenWorker) LastActivityMs() int64 {
	return w.lastActivityMs.Load()
}

// ==========================================
// 外部接口方法（事件接收）
// ==========================================

// OnFrame 接收该代币订阅通道上的一帧原始数据
func (w *TokenWorker) OnFrame(raw []byte) {
	w.sendMsg(&Msg{Type: MsgTypeFrame, Data: raw})
}

// sendMsg 投递消息，通道满时阻塞重试并打节流日志
func (w *TokenWorker) sendMsg(msg *Msg) {
	for {
		select {
		case w.msgChan <- msg:
			return

		case <-w.ctx.Done():
			return

		default:
			if utils.ThrottleLog(&w.lastSendLogTime, time.Second) {
				logger.Warnf("[Tracker:%s] msgChan full, blocking Send()", w.token)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// ==========================================
// 内部消息处理
// ==========================================

func (w *TokenWorker) handleMsg(msg *Msg) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Tracker:%s] panic in handleMsg: %v\n%s", w.token, r, debug.Stack())
		}
	}()

	switch msg.Type {
	case MsgTypeFrame:
		w.handleFrame(msg.Data.([]byte))

	case MsgTypeEvaluate:
		w.evaluate(time.Now())

	default:
		logger.Warnf("[Tracker:%s] unknown MsgType %s", w.token, msg.Type)
	}
}

func (w *TokenWorker) handleFrame(raw []byte) {
	dm := protocol.Decode(raw)
	metrics.FramesTotal.WithLabelValues(dm.Kind.String()).Inc()

	if dm.Kind != protocol.MsgStructured {
		// 心跳静默跳过，其余不可解析帧打低频日志即可
		if dm.Kind != protocol.MsgHeartbeat {
			logger.Debugf("[Tracker:%s] unstructured frame kind=%s", w.token, dm.Kind)
		}
		return
	}

	ev, ok := protocol.Classify(dm)
	if !ok {
		return
	}
	metrics.EventsTotal.WithLabelValues(ev.Kind.String()).Inc()

	now := time.Now()
	w.store.Apply(w.token, ev, now)
	w.lastActivityMs.Store(now.UnixMilli())

	w.evaluate(now)
}

// evaluate 跑一轮检测并按冷却策略推送命中的告警
func (w *TokenWorker) evaluate(now time.Time) {
	st, ok := w.store.Get(w.token)
	if !ok || len(st.History) == 0 {
		return
	}

	rates := growth.Calc(st)
	hits := w.detector.Evaluate(st, rates, now)

	for _, hit := range hits {
		if !w.policy.Emit(hit.Category, now) {
			metrics.AlertsSuppressed.WithLabelValues(string(hit.Category)).Inc()
			continue
		}

		latest := st.Latest()
		w.sink.EnqueueAlert(&types.AlertTask{
			Token:      w.token,
			Symbol:     st.Symbol,
			Category:   hit.Category,
			Evidence:   hit.Evidence,
			AlertAtMs:  now.UnixMilli(),
			MarketID:   st.MarketID,
			PriceUsd:   latest.PriceUsd,
			HoldersNow: latest.TotalHolders,
		})
		metrics.AlertsTotal.WithLabelValues(string(hit.Category)).Inc()
		logger.Infof("[Tracker:%s] alert category=%s holders=%d price=%.8f",
			w.token, hit.Category, latest.TotalHolders, latest.PriceUsd)
	}
}
