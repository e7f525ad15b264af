package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	coingeckoURL    = "https://api.coingecko.com/api/v3"
	coingeckoProURL = "https://pro-api.coingecko.com/api/v3"
)

var coingeckoIDs = map[models.Symbol]string{
	models.SymbolETH:   "ethereum",
	models.SymbolOSQTH: "opyn-squeeth",
}

type CoingeckoClient struct {
	BaseClient
}

// NewCoingeckoClient returns a client for the public API, or the pro API when pro is
// set. A key on the public API is sent as a demo key.
func NewCoingeckoClient(apiKey string, pro bool, opts Options) *CoingeckoClient {
	baseURL, header := coingeckoURL, "x-cg-demo-api-key"
	if pro {
		baseURL, header = coingeckoProURL, "x-cg-pro-api-key"
	}
	return &CoingeckoClient{
		BaseClient: newBaseClient(baseURL, NewHeaderKeyAuthenticator(header, apiKey), opts),
	}
}

func (c *CoingeckoClient) Name() string { return "coingecko" }

func (c *CoingeckoClient) GetQuote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	quotes, err := c.GetQuotes(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return quotes[symbol], nil
}

// GetQuotes fetches several symbols in one request.
func (c *CoingeckoClient) GetQuotes(ctx context.Context, symbols ...models.Symbol) (map[models.Symbol]*models.Quote, error) {
	ids := make([]string, 0, len(symbols))
	for _, s := range symbols {
		id, ok := coingeckoIDs[s]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, s)
		}
		ids = append(ids, id)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	var resp map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, "/simple/price", query, &resp); err != nil {
		return nil, fmt.Errorf("coingecko simple price: %w", err)
	}

	now := time.Now().UTC()
	quotes := make(map[models.Symbol]*models.Quote, len(symbols))
	for _, s := range symbols {
		price, ok := resp[coingeckoIDs[s]]["usd"]
		if !ok {
			return nil, fmt.Errorf("coingecko returned no usd price for %s", s)
		}
		quotes[s] = &models.Quote{Symbol: s, Price: price, Source: c.Name(), Timestamp: now}
	}
	return quotes, nil
}
