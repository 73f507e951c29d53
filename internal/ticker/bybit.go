package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/duyhung112/crypto-insights/internal/common"
	"github.com/duyhung112/crypto-insights/internal/config"
	"github.com/duyhung112/crypto-insights/internal/util"
	"github.com/duyhung112/crypto-insights/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
)

const (
	defaultWebsocketURL = "wss://stream.bybit.com/v5/public/linear"
	pingInterval        = 20 * time.Second
)

// Stream maintains a websocket subscription to Bybit's public ticker feed
// and caches the latest update per symbol. It reconnects with backoff until
// its context is cancelled; the analysis pipeline never blocks on it.
type Stream struct {
	url     string
	symbols []string

	mu     sync.RWMutex
	latest map[string]models.TickerUpdate

	log *util.Logger
}

func NewStream(cfg config.TickerConfig) *Stream {
	url := cfg.WebsocketURL
	if url == "" {
		url = defaultWebsocketURL
	}
	return &Stream{
		url:     url,
		symbols: cfg.Symbols,
		latest:  make(map[string]models.TickerUpdate),
		log:     util.NewLogger("ticker"),
	}
}

// Latest returns the most recent ticker update for a symbol, if any has
// arrived since the stream started.
func (s *Stream) Latest(symbol string) (models.TickerUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.latest[util.PairToBybit(symbol)]
	return u, ok
}

// Run connects and consumes the feed until ctx is cancelled. Connection
// loss triggers a backoff-delayed reconnect, never an error to the caller.
func (s *Stream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		s.log.Debug("No ticker symbols configured, stream disabled")
		return
	}

	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    time.Minute,
		Jitter: true,
	}

	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			d := b.Duration()
			s.log.Warn(common.ErrCodeTickerReadFailed, common.ErrMsgTickerReadFailed,
				"Ticker stream dropped, reconnecting", "error", err.Error(), "retry_in", d.String())
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return
			}
			continue
		}
		return
	}
}

type subscribeMsg struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type tickerMsg struct {
	Topic string `json:"topic"`
	Data  struct {
		Symbol       string `json:"symbol"`
		LastPrice    string `json:"lastPrice"`
		Price24hPcnt string `json:"price24hPcnt"`
	} `json:"data"`
}

func (s *Stream) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	args := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		args = append(args, "tickers."+util.PairToBybit(sym))
	}
	if err := conn.WriteJSON(subscribeMsg{Op: "subscribe", Args: args}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.log.Info("Ticker stream connected", "url", s.url, "topics", len(args))

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ctx, conn, done)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.handle(raw)
	}
}

// keepAlive sends the Bybit application-level ping; the server drops silent
// connections.
func (s *Stream) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := conn.WriteJSON(subscribeMsg{Op: "ping"}); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (s *Stream) handle(raw []byte) {
	var msg tickerMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Data.Symbol == "" {
		return
	}

	update := models.TickerUpdate{
		Symbol:       msg.Data.Symbol,
		LastPrice:    util.ParseFloat(msg.Data.LastPrice),
		Price24hPcnt: util.ParseFloat(msg.Data.Price24hPcnt) * 100,
		Timestamp:    time.Now().UTC(),
	}
	if update.LastPrice <= 0 {
		return
	}

	s.mu.Lock()
	s.latest[msg.Data.Symbol] = update
	s.mu.Unlock()
}
