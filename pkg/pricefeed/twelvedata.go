package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/shopspring/decimal"
)

const twelvedataURL = "https://api.twelvedata.com"

// Twelvedata only lists ETH; oSQTH is not traded on the venues it covers.
var twelvedataSymbols = map[models.Symbol]string{
	models.SymbolETH: "ETH/USD",
}

type TwelvedataClient struct {
	BaseClient
}

func NewTwelvedataClient(apiKey string, opts Options) *TwelvedataClient {
	return &TwelvedataClient{
		BaseClient: newBaseClient(twelvedataURL, NewQueryKeyAuthenticator("apikey", apiKey), opts),
	}
}

func (c *TwelvedataClient) Name() string { return "twelvedata" }

type twelvedataPrice struct {
	Price   decimal.NullDecimal `json:"price"`
	Status  string              `json:"status"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
}

func (c *TwelvedataClient) GetQuote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	pair, ok := twelvedataSymbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	query := url.Values{}
	query.Set("symbol", pair)

	var resp twelvedataPrice
	if err := c.getJSON(ctx, "/price", query, &resp); err != nil {
		return nil, fmt.Errorf("twelvedata price: %w", err)
	}
	// Errors come back with HTTP 200 and a status field.
	if resp.Status == "error" {
		return nil, fmt.Errorf("twelvedata price: code %d: %s", resp.Code, resp.Message)
	}
	if !resp.Price.Valid {
		return nil, fmt.Errorf("twelvedata returned no price for %s", pair)
	}

	return &models.Quote{
		Symbol:    symbol,
		Price:     resp.Price.Decimal,
		Source:    c.Name(),
		Timestamp: time.Now().UTC(),
	}, nil
}
