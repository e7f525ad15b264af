package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTickerStreamDeliversQuotes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan subscribeMessage, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		conn.WriteJSON(map[string]string{"type": "subscriptions"})
		conn.WriteJSON(map[string]string{"type": "ticker", "product_id": "BTC-USD", "price": "60000"})
		conn.WriteJSON(map[string]string{"type": "ticker", "product_id": "ETH-USD", "price": "1811.42", "time": "2024-05-01T12:00:00Z"})

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	quotes := make(chan models.Quote, 4)
	stream := NewTickerStream(StreamOptions{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond}, func(q models.Quote) {
		quotes <- q
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	select {
	case sub := <-subscribed:
		assert.Equal(t, "subscribe", sub.Type)
		assert.Equal(t, []string{"ETH-USD"}, sub.ProductIDs)
		assert.Equal(t, []string{"ticker"}, sub.Channels)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe message")
	}

	select {
	case q := <-quotes:
		assert.Equal(t, models.SymbolETH, q.Symbol)
		assert.Equal(t, "1811.42", q.Price.String())
		assert.Equal(t, "coinbase-ws", q.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("no quote received")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestTickerStreamGivesUp(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	stream := NewTickerStream(StreamOptions{URL: wsURL(srv), ReconnectDelay: time.Millisecond, MaxReconnects: 2}, func(models.Quote) {}, quietLogger())

	err := stream.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 2 reconnects")
	assert.Equal(t, int32(3), attempts.Load())
}
