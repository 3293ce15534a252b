package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/portfolio"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(&serveCmd{}, "server")
	c.Register(&summaryCmd{}, "portfolio")
	c.Register(&buyNextCmd{}, "portfolio")
}

type serveCmd struct {
	async bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the portfolio dashboard API" }
func (*serveCmd) Usage() string {
	return `serve [-async]

  Serves the portfolio API. With -async, buy next requests can also be
  planned by the workers listening on RabbitMQ.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.async, "async", false, "Forward buy next requests to the workers over RabbitMQ.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := InitLogger(cfg.Log.Level)
	defer logger.Sync()

	run := ExecuteSync
	if c.async {
		run = ExecuteAsync
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(fmt.Errorf("serve: %w", err).Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the allocation of the portfolio" }
func (*summaryCmd) Usage() string {
	return `summary

  Prints the total value, the stock share against its goal and, for every
  holding, its gap to the goal and the trade it calls for.
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	a.RefreshOnce()

	snap, err := a.service.Snapshot(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := writeSummary(os.Stdout, snap, a.cfg.Portfolio.Currency); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type buyNextCmd struct {
	cash  string
	sells bool
}

func (*buyNextCmd) Name() string     { return "buynext" }
func (*buyNextCmd) Synopsis() string { return "plan the next purchases" }
func (*buyNextCmd) Usage() string {
	return `buynext [-cash <amount>] [-sells]

  Prints, as JSON, the purchases that bring the portfolio closer to its goal
  with the given cash. Without cash, the single next share to buy.
`
}

func (c *buyNextCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cash, "cash", "", "Cash available for the purchases.")
	f.BoolVar(&c.sells, "sells", false, "Also list the holdings to sell.")
}

func (c *buyNextCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cash := decimal.Zero
	if c.cash != "" {
		var err error
		if cash, err = decimal.NewFromString(c.cash); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing cash: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	a.RefreshOnce()

	resp, err := a.service.BuyNext(ctx, cash, c.sells)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, InitLogger(cfg.Log.Level))
}

// formatMoney displays amount in currency, rounded to the currency fraction.
// An unknown currency falls back to the plain decimal.
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), cur.Code).Display()
}

func writeSummary(w io.Writer, snap portfolio.Snapshot, currency string) error {
	fmt.Fprintf(w, "%s: %s\n", snap.Goal.Name, formatMoney(snap.Total, currency))
	fmt.Fprintf(w, "stocks %.2f%% (goal %.2f%%, deviation %+.2f%%), next buy: %s\n\n",
		snap.StockPercent, snap.Goal.StockPercent, snap.Deviation(), snap.Side())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tKIND\tVALUE\tCURRENT %\tGOAL %\tGAP\tTRADE")
	for i, d := range snap.Diffs() {
		h := snap.Holdings[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%+.2f\t%s\n",
			h.Symbol, h.Kind, formatMoney(h.Value(), currency),
			snap.Percents[i], h.GoalPercent, d.GoalMinusActual, d.Trade)
	}
	return tw.Flush()
}
