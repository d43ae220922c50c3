package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TradePulse/pkg/logger"
)

const (
	defaultWebSocketURL = "wss://ws.kraken.com"
	reconnectDelay      = 5 * time.Second
	pingInterval        = 30 * time.Second
)

// PriceFunc receives live price updates keyed by the configured pair name.
type PriceFunc func(pair string, price float64)

// Stream subscribes to the public ticker channel and pushes prices into the
// REST client's snapshot cache, so decisions between polls see fresh prices.
type Stream struct {
	url     string
	pairs   []string
	wsNames map[string]string // ws pair name -> configured pair
	onPrice PriceFunc
	logger  *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewStream creates a ticker stream for the configured pairs.
func NewStream(url string, pairs []string, onPrice PriceFunc, log *logger.Logger) *Stream {
	if url == "" {
		url = defaultWebSocketURL
	}
	names := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		names[wsPairName(pair)] = pair
	}
	return &Stream{
		url:     url,
		pairs:   pairs,
		wsNames: names,
		onPrice: onPrice,
		logger:  log,
	}
}

// Start connects and reads in the background, reconnecting on failure until
// the context is cancelled.
func (s *Stream) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		cancel()
		return err
	}
	go s.run(ctx)
	return nil
}

// Stop tears down the stream.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Stream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	sub := map[string]any{
		"event": "subscribe",
		"pair":  wsPairNames(s.pairs),
		"subscription": map[string]string{
			"name": "ticker",
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info("ticker stream connected",
		logger.String("url", s.url),
		logger.Strings("pairs", s.pairs),
	)
	return nil
}

func (s *Stream) run(ctx context.Context) {
	go s.pingLoop(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("ticker stream read failed, reconnecting", logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			if err := s.connect(ctx); err != nil {
				s.logger.Error("ticker stream reconnect failed", logger.Error(err))
			}
			continue
		}
		s.handleMessage(message)
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteJSON(map[string]string{"event": "ping"}); err != nil {
				s.logger.Debug("ticker stream ping failed", logger.Error(err))
			}
		}
	}
}

// handleMessage parses ticker frames of the form
// [channelID, {"c": ["price", ...]}, "ticker", "XBT/USD"].
// Event objects (heartbeats, subscription acks) are ignored.
func (s *Stream) handleMessage(message []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil || len(frame) < 4 {
		return
	}

	var channel, wsName string
	if err := json.Unmarshal(frame[len(frame)-2], &channel); err != nil || channel != "ticker" {
		return
	}
	if err := json.Unmarshal(frame[len(frame)-1], &wsName); err != nil {
		return
	}
	pair, ok := s.wsNames[wsName]
	if !ok {
		return
	}

	var payload struct {
		C []string `json:"c"`
	}
	if err := json.Unmarshal(frame[1], &payload); err != nil || len(payload.C) == 0 {
		return
	}
	price := toFloat(payload.C[0])
	if price > 0 {
		s.onPrice(pair, price)
	}
}

// wsPairName converts a REST pair like XBTUSD to the stream's XBT/USD form.
func wsPairName(pair string) string {
	for _, quote := range []string{"USDT", "USD"} {
		if strings.HasSuffix(pair, quote) {
			return strings.TrimSuffix(pair, quote) + "/" + quote
		}
	}
	return pair
}

func wsPairNames(pairs []string) []string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = wsPairName(p)
	}
	return names
}
