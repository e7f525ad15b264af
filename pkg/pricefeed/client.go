// Package pricefeed fetches ETH-USD and oSQTH-USD quotes from public market data APIs.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrUnsupportedSymbol = errors.New("symbol not supported by feed")

// Feed is a source of price quotes.
type Feed interface {
	Name() string
	GetQuote(ctx context.Context, symbol models.Symbol) (*models.Quote, error)
}

// Options configure the HTTP side of a feed client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Logger         *logrus.Logger
}

type BaseClient struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func newBaseClient(defaultURL string, auth Authenticator, opts Options) BaseClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if auth == nil {
		auth = NoAuth{}
	}

	return BaseClient{
		baseURL:    baseURL,
		auth:       auth,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// getJSON issues a rate-limited GET and decodes the response body into out.
func (c *BaseClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if query == nil {
		query = url.Values{}
	}
	if err := c.auth.Authenticate(req, query); err != nil {
		return fmt.Errorf("failed to authenticate request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, truncate(body, 256))
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
