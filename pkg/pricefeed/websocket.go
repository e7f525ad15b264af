package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// QuoteHandler receives every quote a stream produces.
type QuoteHandler func(quote models.Quote)

type StreamOptions struct {
	URL            string
	ReconnectDelay time.Duration
	MaxReconnects  int
	PingInterval   time.Duration
}

// TickerStream follows the Coinbase exchange ticker channel.
type TickerStream struct {
	opts     StreamOptions
	products map[string]models.Symbol
	handler  QuoteHandler
	logger   *logrus.Logger
}

type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type tickerMessage struct {
	Type      string          `json:"type"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Time      time.Time       `json:"time"`
	Message   string          `json:"message"`
	Reason    string          `json:"reason"`
}

func NewTickerStream(opts StreamOptions, handler QuoteHandler, logger *logrus.Logger) *TickerStream {
	if opts.PingInterval == 0 {
		opts.PingInterval = 30 * time.Second
	}
	products := make(map[string]models.Symbol, len(coinbaseProducts))
	for symbol, product := range coinbaseProducts {
		products[product] = symbol
	}
	return &TickerStream{
		opts:     opts,
		products: products,
		handler:  handler,
		logger:   logger,
	}
}

// Run keeps the stream connected until ctx is cancelled or MaxReconnects consecutive
// attempts have failed.
func (ws *TickerStream) Run(ctx context.Context) error {
	failures := 0
	for {
		received, err := ws.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			failures = 0
		}
		failures++
		if failures > ws.opts.MaxReconnects {
			return fmt.Errorf("ticker stream gave up after %d reconnects: %w", ws.opts.MaxReconnects, err)
		}

		ws.logger.WithError(err).WithField("attempt", failures).Warn("Ticker stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ws.opts.ReconnectDelay):
		}
	}
}

// session runs one connection and reports whether any quote was received on it.
func (ws *TickerStream) session(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, ws.opts.URL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to connect to websocket: %w", err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	if err := ws.subscribe(conn); err != nil {
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}

	go ws.keepAlive(connCtx, conn)

	return ws.readLoop(conn)
}

func (ws *TickerStream) subscribe(conn *websocket.Conn) error {
	ids := make([]string, 0, len(ws.products))
	for product := range ws.products {
		ids = append(ids, product)
	}

	return conn.WriteJSON(subscribeMessage{
		Type:       "subscribe",
		ProductIDs: ids,
		Channels:   []string{"ticker"},
	})
}

func (ws *TickerStream) readLoop(conn *websocket.Conn) (bool, error) {
	received := false
	for {
		var msg tickerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return received, fmt.Errorf("failed to read websocket message: %w", err)
		}

		switch msg.Type {
		case "ticker":
			symbol, ok := ws.products[msg.ProductID]
			if !ok {
				continue
			}
			ts := msg.Time
			if ts.IsZero() {
				ts = time.Now()
			}
			received = true
			ws.handler(models.Quote{Symbol: symbol, Price: msg.Price, Source: "coinbase-ws", Timestamp: ts.UTC()})
		case "error":
			return received, errors.New("coinbase websocket error: " + msg.Message + " " + msg.Reason)
		}
	}
}

func (ws *TickerStream) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(ws.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				ws.logger.WithError(err).Error("Failed to send ping")
				return
			}
		}
	}
}
