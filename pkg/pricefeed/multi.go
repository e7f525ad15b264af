package pricefeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/sirupsen/logrus"
)

// Multi asks each feed in turn and returns the first quote obtained.
type Multi struct {
	feeds  []Feed
	logger *logrus.Logger
}

func NewMulti(logger *logrus.Logger, feeds ...Feed) *Multi {
	return &Multi{feeds: feeds, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) GetQuote(ctx context.Context, symbol models.Symbol) (*models.Quote, error) {
	var errs []error
	for _, feed := range m.feeds {
		quote, err := feed.GetQuote(ctx, symbol)
		if err == nil {
			return quote, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, ErrUnsupportedSymbol) {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"feed":   feed.Name(),
				"symbol": symbol,
			}).Warn("Price feed failed, trying next")
		}
		errs = append(errs, fmt.Errorf("%s: %w", feed.Name(), err))
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("no price feeds configured")
	}
	return nil, fmt.Errorf("all price feeds failed for %s: %w", symbol, errors.Join(errs...))
}
