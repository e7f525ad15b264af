// Package subgraph reads squeeth position ledgers from the protocol subgraph.
package subgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrPositionNotFound = errors.New("position not found")

const positionFields = `
    id
    owner
    currentOSQTHAmount
    currentETHAmount
    unrealizedOSQTHUnitCost
    unrealizedETHUnitCost
    realizedOSQTHUnitCost
    realizedETHUnitCost
    realizedOSQTHUnitGain
    realizedETHUnitGain
    realizedOSQTHAmount
    realizedETHAmount`

const positionsQuery = `query positions($owner: Bytes!) {
  positions(where: {owner: $owner}) {` + positionFields + `
  }
}`

const positionsPageQuery = `query positionsPage($first: Int!, $lastID: ID!) {
  positions(first: $first, where: {id_gt: $lastID}, orderBy: id, orderDirection: asc) {` + positionFields + `
  }
}`

type Options struct {
	Timeout        time.Duration
	RequestsPerSec float64
}

type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewClient(url string, opts Options, logger *logrus.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type positionsResponse struct {
	Data struct {
		Positions []models.RawPosition `json:"positions"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// GetPosition returns the ledger record owned by owner.
func (c *Client) GetPosition(ctx context.Context, owner string) (*models.RawPosition, error) {
	positions, err := c.query(ctx, positionsQuery, map[string]interface{}{
		"owner": strings.ToLower(owner),
	})
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, owner)
	}
	if len(positions) > 1 {
		c.logger.WithFields(logrus.Fields{
			"owner": owner,
			"count": len(positions),
		}).Warn("Multiple positions for owner, using the first")
	}
	return &positions[0], nil
}

// ListPositions pages through every position, pageSize records at a time.
func (c *Client) ListPositions(ctx context.Context, pageSize int) ([]models.RawPosition, error) {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}

	var all []models.RawPosition
	lastID := ""
	for {
		page, err := c.query(ctx, positionsPageQuery, map[string]interface{}{
			"first":  pageSize,
			"lastID": lastID,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		lastID = page[len(page)-1].ID
	}
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}) ([]models.RawPosition, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := sonic.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read subgraph response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	}

	var out positionsResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode subgraph response: %w", err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("subgraph query failed: %s", strings.Join(msgs, "; "))
	}

	return out.Data.Positions, nil
}
