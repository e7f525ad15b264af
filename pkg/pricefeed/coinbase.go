package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	coinbaseURL        = "https://api.exchange.coinbase.com"
	coinbaseSandboxURL = "https://api-public.sandbox.exchange.coinbase.com"
)

var coinbaseProducts = map[models.Symbol]string{
	models.SymbolETH: "ETH-USD",
}

// CoinbaseClient reads the public exchange ticker; no credentials are needed.
type CoinbaseClient struct {
	BaseClient
}

func NewCoinbaseClient(sandbox bool, opts Options) *CoinbaseClient {
	baseURL := coinbaseURL
	if sandbox {
		baseURL = coinbaseSandboxURL
	}
	return &CoinbaseClient{BaseClient: newBaseClient(baseURL, NoAuth{}, opts)}
}

func (c *CoinbaseClient) Name() string { return "coinbase" }

type coinbaseTicker struct {
	Price decimal.Decimal `json:"price"`
	Bid   decimal.Decimal `json:"bid"`
	Ask   decimal.Decimal `json:"ask"`
	Time  time.Time       `json:"time"`
}

func (c *CoinbaseClient) GetQuote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	product, ok := coinbaseProducts[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	var ticker coinbaseTicker
	if err := c.getJSON(ctx, "/products/"+product+"/ticker", nil, &ticker); err != nil {
		return nil, fmt.Errorf("coinbase ticker: %w", err)
	}

	ts := ticker.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return &models.Quote{Symbol: symbol, Price: ticker.Price, Source: c.Name(), Timestamp: ts.UTC()}, nil
}
