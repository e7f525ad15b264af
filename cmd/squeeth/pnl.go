package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/pnl"
	"github.com/gregtusar/squeeth/pkg/pricefeed"
	"github.com/gregtusar/squeeth/pkg/units"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPnLCmd() *cobra.Command {
	var ethPrice, osqthPrice string

	cmd := &cobra.Command{
		Use:   "pnl <account>",
		Short: "Mark an account's squeeth position to market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			prices, err := resolvePrices(ctx, newPriceFeed(cfg), ethPrice, osqthPrice)
			if err != nil {
				return err
			}

			raw, err := newSubgraphClient(cfg).GetPosition(ctx, args[0])
			if err != nil {
				return err
			}

			result, err := pnl.CalculateRaw(*raw, prices)
			if err != nil {
				return err
			}

			printResult(args[0], prices, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&ethPrice, "eth-price", "", "ETH price override")
	cmd.Flags().StringVar(&osqthPrice, "osqth-price", "", "oSQTH price override")
	return cmd
}

// resolvePrices uses the overrides when given and asks the feed for the rest.
func resolvePrices(ctx context.Context, feed pricefeed.Feed, ethOverride, osqthOverride string) (models.Prices, error) {
	var prices models.Prices

	pairs := []struct {
		symbol   models.Symbol
		override string
		dst      *decimal.Decimal
	}{
		{models.SymbolETH, ethOverride, &prices.ETH},
		{models.SymbolOSQTH, osqthOverride, &prices.OSQTH},
	}
	for _, p := range pairs {
		if p.override != "" {
			d, err := decimal.NewFromString(p.override)
			if err != nil {
				return prices, fmt.Errorf("invalid %s price %q: %w", p.symbol, p.override, err)
			}
			*p.dst = d
			continue
		}
		quote, err := feed.GetQuote(ctx, p.symbol)
		if err != nil {
			return prices, fmt.Errorf("failed to get %s quote: %w", p.symbol, err)
		}
		*p.dst = quote.Price
	}

	return prices, nil
}

func printResult(account string, prices models.Prices, r models.PnLResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Account\t%s\n", account)
	fmt.Fprintf(w, "ETH price\t%s\n", units.FormatCurrency(prices.ETH))
	fmt.Fprintf(w, "oSQTH price\t%s\n", units.FormatCurrency(prices.OSQTH))
	fmt.Fprintf(w, "Position value\t%s\n", units.FormatCurrency(r.CurrentPositionValue))
	fmt.Fprintf(w, "Unrealized cost\t%s\n", units.FormatCurrency(r.UnrealizedCost))
	fmt.Fprintf(w, "Unrealized PnL\t%s\t%s\n", units.FormatCurrency(r.UnrealizedPnL), units.FormatPercent(r.UnrealizedPnLInPercent))
	fmt.Fprintf(w, "Realized PnL\t%s\t%s\n", units.FormatCurrency(r.RealizedPnL), units.FormatPercent(r.RealizedPnLInPercent))
}
