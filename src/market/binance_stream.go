package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// tickerFrame is Binance's combined-stream miniTicker payload shape: only
// the fields this feed actually reads.
type tickerFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

// Stream pushes live last-trade prices from Binance's combined miniTicker
// websocket straight into a Cache, grounded on the teacher's
// connectors/hydra_connector.go websocket-dial idiom but against a plain
// JSON feed rather than a GWT-RPC handshake.
type Stream struct {
	Cache *Cache
	log   *logger.Entry

	dialer websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewStream(cache *Cache) *Stream {
	return &Stream{
		Cache: cache,
		log:   logger.WithField("component", "market.Stream"),
		dialer: websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Run dials the combined stream for the given symbols and pushes prices
// into the cache until ctx is cancelled, reconnecting with a fixed backoff
// on any read/dial error.
func (s *Stream) Run(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectAndConsume(ctx, symbols); err != nil {
			s.log.WithError(err).Warn("market stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *Stream) connectAndConsume(ctx context.Context, symbols []string) error {
	streamURL := combinedStreamURL(symbols)

	conn, _, err := s.dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return fmt.Errorf("market: websocket dial: %w", err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("market: websocket read: %w", err)
		}

		var frame tickerFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			s.log.WithError(err).Warn("market stream: unparseable frame")
			continue
		}
		if frame.Data.Symbol == "" || frame.Data.Close == "" {
			continue
		}
		price, err := decimal.NewFromString(frame.Data.Close)
		if err != nil {
			continue
		}
		s.Cache.Put(strings.ToUpper(frame.Data.Symbol), price, time.Now())
	}
}

// Close closes the active connection, if any, unblocking a pending
// ReadMessage so Run's loop can observe ctx cancellation promptly.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func combinedStreamURL(symbols []string) string {
	names := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		names = append(names, strings.ToLower(symbol)+"@miniTicker")
	}
	u := url.URL{
		Scheme:   "wss",
		Host:     "stream.binance.com:9443",
		Path:     "/stream",
		RawQuery: url.Values{"streams": []string{strings.Join(names, "/")}}.Encode(),
	}
	return u.String()
}
