package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pump-sentinel-sol/internal/sentinel/types"
)

// Config 上游 websocket 接入参数
type Config struct {
	Endpoints []string `json:"endpoints" yaml:"endpoints"`   // 上游端点，多个时轮询分摊
	AuthBlob  string   `json:"auth_blob" yaml:"auth_blob"`   // base64 认证数据，连上后首帧以二进制发送

	DialTimeoutSeconds  int `json:"dial_timeout_seconds" yaml:"dial_timeout_seconds"`
	WriteTimeoutSeconds int `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	ReadTimeoutSeconds  int `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	PingIntervalSeconds int `json:"ping_interval_seconds" yaml:"ping_interval_seconds"`

	ReconnectMinMs     int `json:"reconnect_min_ms" yaml:"reconnect_min_ms"`
	ReconnectMaxMs     int `json:"reconnect_max_ms" yaml:"reconnect_max_ms"`
	ResolvePollSeconds int `json:"resolve_poll_seconds" yaml:"resolve_poll_seconds"` // marketID 解析轮询间隔
}

func DefaultConfig() Config {
	return Config{
		DialTimeoutSeconds:  10,
		WriteTimeoutSeconds: 10,
		ReadTimeoutSeconds:  60,
		PingIntervalSeconds: 30,
		ReconnectMinMs:      1000,
		ReconnectMaxMs:      30000,
		ResolvePollSeconds:  2,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	def := DefaultConfig()
	if out.DialTimeoutSeconds <= 0 {
		out.DialTimeoutSeconds = def.DialTimeoutSeconds
	}
	if out.WriteTimeoutSeconds <= 0 {
		out.WriteTimeoutSeconds = def.WriteTimeoutSeconds
	}
	if out.ReadTimeoutSeconds <= 0 {
		out.ReadTimeoutSeconds = def.ReadTimeoutSeconds
	}
	if out.PingIntervalSeconds <= 0 {
		out.PingIntervalSeconds = def.PingIntervalSeconds
	}
	if out.ReconnectMinMs <= 0 {
		out.ReconnectMinMs = def.ReconnectMinMs
	}
	if out.ReconnectMaxMs <= 0 {
		out.ReconnectMaxMs = def.ReconnectMaxMs
	}
	if out.ResolvePollSeconds <= 0 {
		out.ResolvePollSeconds = def.ResolvePollSeconds
	}
	return out
}

// Dispatcher 收到的帧按代币路由出去，由 tracker.Manager 实现
type Dispatcher interface {
	Dispatch(token string, raw []byte)
}

// MarketResolver 查询已解析的 marketID，由 state.Store 实现
type MarketResolver interface {
	MarketIDOf(token string) string
}

// Client 管理全部代币的上游会话。每个代币一条独立连接，
// 一条连接上的帧天然归属该代币，省掉应用层路由协议。
type Client struct {
	cfg        Config
	dispatcher Dispatcher
	resolver   MarketResolver
	authBytes  []byte

	mu       sync.Mutex
	sessions map[string]*session
	rr       atomic.Uint64

	ctx    context.Context
	cancel func(err error)
}

func NewClient(cfg Config, dispatcher Dispatcher, resolver MarketResolver) (*Client, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Endpoints) == 0 {
		return nil, errors.New("transport: no endpoints configured")
	}

	var authBytes []byte
	if cfg.AuthBlob != "" {
		decoded, err := base64.StdEncoding.DecodeString(cfg.AuthBlob)
		if err != nil {
			return nil, fmt.Errorf("transport: decode auth blob: %w", err)
		}
		authBytes = decoded
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &Client{
		cfg:        cfg,
		dispatcher: dispatcher,
		resolver:   resolver,
		authBytes:  authBytes,
		sessions:   make(map[string]*session, 64),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start 阻塞到 Stop，供 ServiceGroup 调度。会话由 Track 驱动创建。
func (c *Client) Start() {
	<-c.ctx.Done()
}

func (c *Client) Stop() {
	c.cancel(errors.New("service stop"))

	c.mu.Lock()
	defer c.mu.Unlock()
	for token, s := range c.sessions {
		s.stop()
		delete(c.sessions, token)
	}
}

// TrackToken 为代币建立上游会话，重复调用幂等
func (c *Client) TrackToken(req types.TrackRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sessions[req.Token]; exists {
		return
	}
	if c.ctx.Err() != nil {
		return
	}

	s := newSession(c, req.Token, req.MarketID)
	c.sessions[req.Token] = s
	go s.run()
}

// UntrackToken 拆除代币会话
func (c *Client) UntrackToken(token string) {
	c.mu.Lock()
	s, ok := c.sessions[token]
	if ok {
		delete(c.sessions, token)
	}
	c.mu.Unlock()

	if ok {
		s.stop()
	}
}

// nextEndpoint 轮询取端点
func (c *Client) nextEndpoint() string {
	n := c.rr.Add(1)
	return c.cfg.Endpoints[(n-1)%uint64(len(c.cfg.Endpoints))]
}

// SessionCount 当前活跃会话数
func (c *Client) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

var _ interface {
	TrackToken(types.TrackRequest)
	UntrackToken(string)
} = (*Client)(nil)

func backoffNext(cur, min, max time.Duration) time.Duration {
	next := cur * 2
	if cur <= 0 {
		next = min
	}
	if next > max {
		next = max
	}
	return next
}
