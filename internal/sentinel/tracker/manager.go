package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/sentinel/alert"
	"pump-sentinel-sol/internal/sentinel/detect"
	"pump-sentinel-sol/internal/sentinel/metrics"
	"pump-sentinel-sol/internal/sentinel/state"
	"pump-sentinel-sol/internal/sentinel/types"
)

// Config tracker 管理参数
type Config struct {
	ExpirySeconds          int `json:"expiry_seconds" yaml:"expiry_seconds"`                     // 无帧过期时间（秒）
	QueueSize              int `json:"queue_size" yaml:"queue_size"`                             // 单 worker 消息队列长度
	EvalIntervalSeconds    int `json:"eval_interval_seconds" yaml:"eval_interval_seconds"`       // 周期评估间隔（秒）
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds" yaml:"cleanup_interval_seconds"` // 过期扫描间隔（秒）
	MaxTrackedTokens       int `json:"max_tracked_tokens" yaml:"max_tracked_tokens"`             // 同时跟踪上限
}

func DefaultConfig() Config {
	return Config{
		ExpirySeconds:          600,
		QueueSize:              64,
		EvalIntervalSeconds:    5,
		CleanupIntervalSeconds: 60,
		MaxTrackedTokens:       512,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	def := DefaultConfig()
	if out.ExpirySeconds <= 0 {
		out.ExpirySeconds = def.ExpirySeconds
	}
	if out.QueueSize <= 0 {
		out.QueueSize = def.QueueSize
	}
	if out.EvalIntervalSeconds <= 0 {
		out.EvalIntervalSeconds = def.EvalIntervalSeconds
	}
	if out.CleanupIntervalSeconds <= 0 {
		out.CleanupIntervalSeconds = def.CleanupIntervalSeconds
	}
	if out.MaxTrackedTokens <= 0 {
		out.MaxTrackedTokens = def.MaxTrackedTokens
	}
	return out
}

// Subscriber 订阅出口，由 transport 层实现
type Subscriber interface {
	TrackToken(req types.TrackRequest)
	UntrackToken(token string)
}

// Manager 管理全部代币 worker：发现即建、无帧即拆。
// 每个代币一个单写者协程，manager 只做路由和生命周期。
type Manager struct {
	mu      sync.RWMutex
	workers map[string]*TokenWorker

	cfg         Config
	store       *state.Store
	detector    *detect.Detector
	alertCfg    alert.Config
	sink        AlertSink
	subscriber  Subscriber
	ctx         context.Context
	cancel      func(err error)
	stopOnce    sync.Once
	cleanupDone chan struct{}
}

func NewManager(
	cfg Config,
	store *state.Store,
	detector *detect.Detector,
	alertCfg alert.Config,
	sink AlertSink,
	subscriber Subscriber,
) *Manager {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Manager{
		workers:     make(map[string]*TokenWorker, 64),
		cfg:         cfg.withDefaults(),
		store:       store,
		detector:    detector,
		alertCfg:    alertCfg,
		sink:        sink,
		subscriber:  subscriber,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// Start 阻塞运行过期扫描循环，供 ServiceGroup 调度
func (m *Manager) Start() {
	ticker := time.NewTicker(time.Duration(m.cfg.CleanupIntervalSeconds) * time.Second)
	defer ticker.Stop()
	defer close(m.cleanupDone)

	for {
		select {
		case <-m.ctx.Done():
			return

		case <-ticker.C:
			m.expireIdle(time.Now())
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel(errors.New("service stop"))
		<-m.cleanupDone

		m.mu.Lock()
		defer m.mu.Unlock()
		for token, w := range m.workers {
			w.Stop()
			delete(m.workers, token)
		}
		metrics.TrackedTokens.Set(0)
	})
}

// Track 开始跟踪一个新发现的代币。重复跟踪是幂等的。
func (m *Manager) Track(req types.TrackRequest) {
	if err := types.ValidateAddress(req.Token); err != nil {
		logger.Warnf("[TrackerMgr] drop track request with invalid address: %v", err)
		return
	}

	m.mu.Lock()
	if _, exists := m.workers[req.Token]; exists {
		m.mu.Unlock()
		return
	}
	if len(m.workers) >= m.cfg.MaxTrackedTokens {
		m.mu.Unlock()
		logger.Warnf("[TrackerMgr] tracked tokens at cap %d, drop %s", m.cfg.MaxTrackedTokens, req.Token)
		return
	}

	now := time.Now()
	st := m.store.GetOrCreate(req.Token, now)
	if req.Deployer != "" {
		m.store.SetDeployer(req.Token, req.Deployer)
	}
	if req.Symbol != "" && st.Symbol == "" {
		st.Symbol = req.Symbol
	}
	if req.MarketID != "" && st.MarketID == "" {
		st.MarketID = req.MarketID
	}

	w := newTokenWorker(
		req.Token,
		m.store,
		m.detector,
		alert.NewPolicy(m.alertCfg),
		m.sink,
		m.cfg.QueueSize,
		time.Duration(m.cfg.EvalIntervalSeconds)*time.Second,
	)
	m.workers[req.Token] = w
	count := len(m.workers)
	m.mu.Unlock()

	go w.Start()
	metrics.TrackedTokens.Set(float64(count))
	logger.Infof("[TrackerMgr] track %s symbol=%s source=%s tracked=%d",
		req.Token, req.Symbol, req.Source, count)

	if m.subscriber != nil {
		m.subscriber.TrackToken(req)
	}
}

// Dispatch 把上游帧路由给对应代币的 worker
func (m *Manager) Dispatch(token string, raw []byte) {
	m.mu.RLock()
	w, ok := m.workers[token]
	m.mu.RUnlock()
	if !ok {
		return
	}
	w.OnFrame(raw)
}

// Tracked 当前跟踪的代币列表
func (m *Manager) Tracked() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.workers))
	for token := range m.workers {
		out = append(out, token)
	}
	return out
}

// expireIdle 拆掉长时间没有有效帧的 worker 并清理其状态
func (m *Manager) expireIdle(now time.Time) {
	expiry := time.Duration(m.cfg.ExpirySeconds) * time.Second
	var expired []string

	m.mu.Lock()
	for token, w := range m.workers {
		idle := now.Sub(time.UnixMilli(w.LastActivityMs()))
		if idle >= expiry {
			w.Stop()
			delete(m.workers, token)
			expired = append(expired, token)
		}
	}
	count := len(m.workers)
	m.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	metrics.TrackedTokens.Set(float64(count))
	for _, token := range expired {
		m.store.Remove(token)
		if m.subscriber != nil {
			m.subscriber.UntrackToken(token)
		}
	}
	logger.Infof("[TrackerMgr] expired %d idle tokens, tracked=%d", len(expired), count)
}
