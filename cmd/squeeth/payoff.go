package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/payoff"
	"github.com/spf13/cobra"
)

func newPayoffCmd() *cobra.Command {
	var (
		params payoff.Params
		long   bool
		every  int
	)

	cmd := &cobra.Command{
		Use:   "payoff",
		Short: "Print the payoff curve of a short or long squeeth position",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			if params.Points == 0 {
				params.Points = cfg.Payoff.Points
			}
			if params.Step == 0 {
				params.Step = cfg.Payoff.Step
			}
			if params.EthPrice == 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				quote, err := newPriceFeed(cfg).GetQuote(ctx, models.SymbolETH)
				if err != nil {
					return fmt.Errorf("no --eth-price given and quote lookup failed: %w", err)
				}
				params.EthPrice = quote.Price.InexactFloat64()
			}

			if long {
				curve, err := payoff.Long(params)
				if err != nil {
					return err
				}
				fmt.Printf("Long squeeth  mark/index %.4f  daily NF %.6f\n\n", curve.MarkRatio, curve.DailyNormFactor)
				if !curve.Finite() {
					logger.Warn("Payoff is not finite for these parameters")
				}
				printSeries(append(curve.Series, curve.ETH, curve.LeveragedETH), every)
				return nil
			}

			curve, err := payoff.Short(params)
			if err != nil {
				return err
			}
			fmt.Printf("Short squeeth  mark/index %.4f  daily NF %.6f  deposit %.2f\n\n",
				curve.MarkRatio, curve.DailyNormFactor, curve.DepositValue)
			if !curve.Finite() {
				logger.Warn("Deposit value is zero, percentages are not finite")
			}
			printSeries(curve.Series, every)
			return nil
		},
	}

	cmd.Flags().Float64Var(&params.EthPrice, "eth-price", 0, "ETH spot price (default: latest quote)")
	cmd.Flags().Float64Var(&params.CollatRatio, "collat-ratio", 1.5, "collateral ratio of the short vault")
	cmd.Flags().Float64Var(&params.Mark, "mark", 0, "squeeth mark price")
	cmd.Flags().Float64Var(&params.Index, "index", 0, "squeeth index price (default: eth price squared)")
	cmd.Flags().Float64Var(&params.MarkIndexRatio, "mark-ratio", 1, "mark/index ratio, used when --mark is not set")
	cmd.Flags().Float64Var(&params.SqueethMark, "squeeth-mark", 0, "value of the minted squeeth")
	cmd.Flags().IntVar(&params.Points, "points", 0, "number of prices in the sweep")
	cmd.Flags().Float64Var(&params.Step, "step", 0, "price increment of the sweep")
	cmd.Flags().BoolVar(&long, "long", false, "draw the long curve instead of the short one")
	cmd.Flags().IntVar(&every, "every", 10, "print every nth price")
	return cmd
}

func printSeries(series []models.PayoffSeries, every int) {
	if len(series) == 0 {
		return
	}
	if every < 1 {
		every = 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	header := []string{"ETH"}
	for _, s := range series {
		header = append(header, s.Label)
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	for i := 0; i < len(series[0].Points); i += every {
		row := []string{fmt.Sprintf("%.2f", series[0].Points[i].Price)}
		for _, s := range series {
			row = append(row, fmt.Sprintf("%.2f%%", s.Points[i].Percent))
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
}
