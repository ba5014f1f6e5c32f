package transport

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/sentinel/metrics"
	"pump-sentinel-sol/internal/sentinel/protocol"
)

// session 单个代币的上游连接。生命周期：
// 拨号 -> 认证 -> 订阅 top-holders -> 解析 marketID -> 订阅行情，
// 读错误后指数退避重连，重连后整套订阅重放。
type session struct {
	client *Client
	token  string

	ctx    context.Context
	cancel func(err error)

	connMu   sync.Mutex
	conn     *websocket.Conn
	marketID string // 发现通道带来的或 (9,45) 解析出来的，connMu 保护
}

func (s *session) getMarketID() string {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.marketID
}

func (s *session) setMarketID(id string) {
	s.connMu.Lock()
	s.marketID = id
	s.connMu.Unlock()
}

func newSession(client *Client, token, marketID string) *session {
	ctx, cancel := context.WithCancelCause(client.ctx)
	return &session{
		client:   client,
		token:    token,
		marketID: marketID,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *session) stop() {
	s.cancel(errors.New("session stop"))
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
}

func (s *session) run() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[WS:%s] panic in session: %v\n%s", s.token, r, debug.Stack())
		}
	}()

	cfg := s.client.cfg
	delay := time.Duration(cfg.ReconnectMinMs) * time.Millisecond
	maxDelay := time.Duration(cfg.ReconnectMaxMs) * time.Millisecond

	for s.ctx.Err() == nil {
		err := s.runOnce()
		if s.ctx.Err() != nil {
			return
		}

		metrics.WsReconnects.Inc()
		logger.Warnf("[WS:%s] session ended: %v, reconnect in %s", s.token, err, delay)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = backoffNext(delay, time.Duration(cfg.ReconnectMinMs)*time.Millisecond, maxDelay)
	}
}

// runOnce 一次完整会话，返回导致会话结束的错误
func (s *session) runOnce() error {
	cfg := s.client.cfg
	endpoint := s.client.nextEndpoint()

	dialCtx, dialCancel := context.WithTimeout(s.ctx, time.Duration(cfg.DialTimeoutSeconds)*time.Second)
	dialer := websocket.Dialer{HandshakeTimeout: time.Duration(cfg.DialTimeoutSeconds) * time.Second}
	conn, _, err := dialer.DialContext(dialCtx, endpoint, nil)
	dialCancel()
	if err != nil {
		return err
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()
	}()

	logger.Infof("[WS:%s] connected to %s", s.token, endpoint)

	if len(s.client.authBytes) > 0 {
		if err := s.write(websocket.BinaryMessage, s.client.authBytes); err != nil {
			return err
		}
	}
	if err := s.subscribeAll(); err != nil {
		return err
	}

	pingDone := make(chan struct{})
	go s.pingLoop(pingDone)
	defer close(pingDone)

	if s.getMarketID() == "" {
		go s.resolveLoop(pingDone)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(time.Duration(cfg.ReadTimeoutSeconds) * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.client.dispatcher.Dispatch(s.token, raw)
	}
}

// subscribeAll 重放全部订阅。marketID 未知时先只订 top-holders
// 并发出 markets-per-token 请求，解析结果走正常分发进状态层。
func (s *session) subscribeAll() error {
	frame, err := protocol.SubscribeTopHolders(s.token)
	if err != nil {
		return err
	}
	if err := s.write(websocket.TextMessage, frame); err != nil {
		return err
	}

	if s.getMarketID() == "" {
		req, reqID, err := protocol.RequestMarkets(s.token)
		if err != nil {
			return err
		}
		logger.Infof("[WS:%s] requesting market resolution, reqID=%s", s.token, reqID)
		return s.write(websocket.TextMessage, req)
	}

	return s.subscribeMarket(s.getMarketID())
}

func (s *session) subscribeMarket(marketID string) error {
	tokenStats, err := protocol.SubscribeTokenStats(marketID)
	if err != nil {
		return err
	}
	if err := s.write(websocket.TextMessage, tokenStats); err != nil {
		return err
	}

	marketStats, err := protocol.SubscribeMarketStats(marketID)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, marketStats)
}

// resolveLoop 轮询状态层直到 marketID 解析完成，然后补订行情
func (s *session) resolveLoop(done chan struct{}) {
	ticker := time.NewTicker(time.Duration(s.client.cfg.ResolvePollSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			marketID := s.client.resolver.MarketIDOf(s.token)
			if marketID == "" {
				continue
			}
			s.setMarketID(marketID)
			if err := s.subscribeMarket(marketID); err != nil {
				logger.Warnf("[WS:%s] subscribe market %s failed: %v", s.token, marketID, err)
				return
			}
			logger.Infof("[WS:%s] subscribed market %s", s.token, marketID)
			return
		}
	}
}

func (s *session) pingLoop(done chan struct{}) {
	ticker := time.NewTicker(time.Duration(s.client.cfg.PingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			// 写失败交给读循环统一处理重连
			_ = s.write(websocket.PingMessage, nil)
		}
	}
}

func (s *session) write(messageType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return errors.New("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(time.Duration(s.client.cfg.WriteTimeoutSeconds) * time.Second))
	return s.conn.WriteMessage(messageType, data)
}
