package ingest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"arbitrage/internal/metrics"
	"arbitrage/pkg/retry"
	"arbitrage/pkg/utils"
)

// WSSourceConfig настраивает переподключение WSSource.
type WSSourceConfig struct {
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	MaxRetries     int // 0 = без ограничения
	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration

	// ReadTimeout - максимальный интервал между входящими фреймами
	// (включая pong), после которого соединение считается мёртвым.
	// Обновляется при каждом полученном pong.
	ReadTimeout time.Duration
}

// DefaultWSSourceConfig возвращает конфигурацию переподключения: 2s, 4s,
// 8s, 16s с неограниченным числом попыток.
func DefaultWSSourceConfig() WSSourceConfig {
	return WSSourceConfig{
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     0,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		ReadTimeout:    45 * time.Second,
	}
}

type wsState int32

const (
	wsStateDisconnected wsState = iota
	wsStateConnecting
	wsStateConnected
	wsStateReconnecting
	wsStateClosed
)

func (s wsState) String() string {
	switch s {
	case wsStateDisconnected:
		return "disconnected"
	case wsStateConnecting:
		return "connecting"
	case wsStateConnected:
		return "connected"
	case wsStateReconnecting:
		return "reconnecting"
	case wsStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// WSSource поддерживает WebSocket-соединение с одним источником котировок,
// автоматически переподключаясь с exponential backoff при разрыве.
// Каждое входящее сообщение разбирается как один Tick и передаётся в
// handler; сообщения, не являющиеся валидным тиком, пропускаются.
type WSSource struct {
	name      string
	url       string
	apiSecret string
	config    WSSourceConfig
	logger    *utils.Logger

	conn   *websocket.Conn
	connMu sync.RWMutex

	state int32 // atomic wsState

	closeChan chan struct{}
	closeOnce sync.Once
}

// NewWSSource создаёт источник для указанного URL. name используется в
// логах и в метках метрик подключения/переподключения. apiSecret, если
// не пусто, отправляется в заголовке X-API-Secret при каждом (пере)
// подключении; пустая строка отключает заголовок для публичных фидов.
func NewWSSource(name, url, apiSecret string, config WSSourceConfig, logger *utils.Logger) *WSSource {
	return &WSSource{
		name:      name,
		url:       url,
		apiSecret: apiSecret,
		config:    config,
		logger:    logger,
		closeChan: make(chan struct{}),
	}
}

// Run подключается и блокируется, передавая тики в handler, пока ctx не
// будет отменён или источник не будет закрыт явно. Переподключение при
// разрыве выполняется внутри, прозрачно для вызывающей стороны.
func (s *WSSource) Run(ctx context.Context, handler Handler) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	defer s.Close()

	go s.pingPump()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		select {
		case <-s.closeChan:
			return ctx.Err()
		default:
		}

		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()

		if conn == nil {
			return fmt.Errorf("ingest: %s: no connection", s.name)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if !s.reconnectLoop(ctx) {
				return fmt.Errorf("ingest: %s: reconnect exhausted: %w", s.name, err)
			}
			continue
		}

		tick, err := DecodeTick(message)
		if err != nil {
			logSkippedTick(s.logger, "ingest.ws."+s.name, message, err)
			continue
		}

		if err := handler(tick); err != nil {
			logSkippedTick(s.logger, "ingest.ws."+s.name, message, err)
		}
	}
}

func (s *WSSource) connect(ctx context.Context) error {
	atomic.StoreInt32(&s.state, int32(wsStateConnecting))

	dialCtx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()

	var header http.Header
	if s.apiSecret != "" {
		header = http.Header{"X-Api-Secret": []string{s.apiSecret}}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.url, header)
	if err != nil {
		atomic.StoreInt32(&s.state, int32(wsStateDisconnected))
		return fmt.Errorf("ingest: %s: dial: %w", s.name, err)
	}

	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	atomic.StoreInt32(&s.state, int32(wsStateConnected))
	metrics.RecordSourceStatus(s.name, true)

	return nil
}

// reconnectLoop closes the stale connection and retries with
// pkg/retry's exponential-backoff-with-jitter until a new connection
// succeeds, MaxRetries is exhausted, or the source is closed. Returns
// false when the caller should give up.
func (s *WSSource) reconnectLoop(ctx context.Context) bool {
	select {
	case <-s.closeChan:
		return false
	default:
	}

	atomic.StoreInt32(&s.state, int32(wsStateReconnecting))
	metrics.RecordSourceStatus(s.name, false)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	// closeChan has no context.Context equivalent, so fold it into a
	// derived context retry.Do can select on alongside ctx itself.
	reconnectCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closeChan:
			cancel()
		case <-reconnectCtx.Done():
		}
	}()

	cfg := retry.Config{
		MaxRetries:   s.config.MaxRetries,
		InitialDelay: s.config.InitialDelay,
		MaxDelay:     s.config.MaxDelay,
		Multiplier:   2.0,
		JitterFactor: 0.1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if s.logger != nil {
				s.logger.Warn("reconnecting ingestion source",
					utils.Component("ingest."+s.name),
					utils.Int("attempt", attempt),
					utils.Err(err),
				)
			}
		},
	}

	err := retry.Do(reconnectCtx, func() error {
		return s.connect(reconnectCtx)
	}, cfg)

	if err != nil {
		atomic.StoreInt32(&s.state, int32(wsStateDisconnected))
		return false
	}

	metrics.RecordSourceReconnect(s.name)
	return true
}

func (s *WSSource) pingPump() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			return
		case <-ticker.C:
			if wsState(atomic.LoadInt32(&s.state)) != wsStateConnected {
				continue
			}

			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()
			if conn == nil {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(s.config.PongTimeout))
			conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

// Close закрывает соединение и останавливает переподключение. Безопасен
// для многократного вызова.
func (s *WSSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		atomic.StoreInt32(&s.state, int32(wsStateClosed))
		metrics.RecordSourceStatus(s.name, false)
	})

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
