package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/pnl"
	"github.com/gregtusar/squeeth/pkg/units"
	"github.com/spf13/cobra"
)

func newPositionsCmd() *cobra.Command {
	var (
		pageSize int
		top      int
	)

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Mark every indexed position to market and rank by unrealized PnL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			prices, err := resolvePrices(ctx, newPriceFeed(cfg), "", "")
			if err != nil {
				return err
			}

			raws, err := newSubgraphClient(cfg).ListPositions(ctx, pageSize)
			if err != nil {
				return err
			}

			ranked, skipped := rankPositions(raws, prices)
			for _, err := range skipped {
				logger.WithError(err).Warn("Skipping position")
			}
			if top > 0 && len(ranked) > top {
				ranked = ranked[:top]
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "Account\tValue\tUnrealized PnL\t%\tRealized PnL")
			for _, r := range ranked {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Account,
					units.FormatCurrency(r.Result.CurrentPositionValue),
					units.FormatCurrency(r.Result.UnrealizedPnL),
					units.FormatPercent(r.Result.UnrealizedPnLInPercent),
					units.FormatCurrency(r.Result.RealizedPnL))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 1000, "positions fetched per subgraph request")
	cmd.Flags().IntVar(&top, "top", 25, "rows to print, 0 for all")
	return cmd
}

type rankedPosition struct {
	Account string
	Result  models.PnLResult
}

// rankPositions marks each ledger against prices and orders them by unrealized PnL,
// largest first. Malformed records are skipped and returned as errors.
func rankPositions(raws []models.RawPosition, prices models.Prices) ([]rankedPosition, []error) {
	var skipped []error
	ranked := make([]rankedPosition, 0, len(raws))
	for _, raw := range raws {
		pos, err := raw.Normalize()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("position %s: %w", raw.ID, err))
			continue
		}
		ranked = append(ranked, rankedPosition{Account: pos.Account, Result: pnl.Calculate(pos, prices)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.UnrealizedPnL.GreaterThan(ranked[j].Result.UnrealizedPnL)
	})
	return ranked, skipped
}
