package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/playground/internal/interfaces"
	"github.com/bobmcallan/playground/internal/models"
)

// portfolioCmd prints holdings valued at current prices.
type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show cash, holdings and their current value" }
func (*portfolioCmd) Usage() string {
	return `playground [-user <id>] portfolio

  Displays the virtual portfolio with live prices where available.
`
}

func (*portfolioCmd) SetFlags(*flag.FlagSet) {}

func (*portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	p, err := a.TradeService.GetPortfolio(ctx, *userID)
	if err != nil {
		return fail("Error loading portfolio: %v", err)
	}
	v, err := a.ValuationService.Value(ctx, p)
	if err != nil {
		return fail("Error valuing portfolio: %v", err)
	}

	printMarkdown(portfolioMarkdown(p, v))
	return subcommands.ExitSuccess
}

// tradeCmd executes a buy or sell.
type tradeCmd struct {
	action string
	price  string
}

func (c *tradeCmd) Name() string { return c.action }
func (c *tradeCmd) Synopsis() string {
	return fmt.Sprintf("%s shares at a given or the current market price", c.action)
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`playground [-user <id>] %s [-p <price>] <ticker> <quantity>

  Without -p the order fills at the current market price.
`, c.action)
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.price, "p", "", "Execution price per share. Empty means market price.")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	order, err := parseOrder(c.action, c.price, f.Args())
	if err != nil {
		return fail("%v", err)
	}

	a, err := openApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	result, err := a.TradeService.ExecuteTrade(ctx, *userID, order)
	if err != nil {
		return fail("Trade rejected: %v", err)
	}

	printMarkdown(tradeMarkdown(result))
	return subcommands.ExitSuccess
}

// estimateCmd previews an order without committing it.
type estimateCmd struct {
	price string
}

func (*estimateCmd) Name() string     { return "estimate" }
func (*estimateCmd) Synopsis() string { return "preview the cash impact of an order" }
func (*estimateCmd) Usage() string {
	return `playground [-user <id>] estimate [-p <price>] <buy|sell> <ticker> <quantity>

  Reports the cost or proceeds of an order and whether it would be accepted.
`
}

func (c *estimateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.price, "p", "", "Execution price per share. Empty means market price.")
}

func (c *estimateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	order, err := parseOrder(f.Arg(0), c.price, f.Args()[1:])
	if err != nil {
		return fail("%v", err)
	}

	a, err := openApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	est, err := a.TradeService.EstimateOrder(ctx, *userID, order)
	if err != nil {
		return fail("Estimate failed: %v", err)
	}

	printMarkdown(estimateMarkdown(est))
	return subcommands.ExitSuccess
}

// quoteCmd prints the current price of a ticker.
type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "show the current market price of a ticker" }
func (*quoteCmd) Usage() string {
	return `playground quote <ticker>
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	ticker := models.NormalizeTicker(f.Arg(0))
	if !models.ValidTicker(ticker) {
		return fail("Invalid ticker %q", f.Arg(0))
	}

	a, err := openApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	if a.Prices == nil {
		return fail("No quote source is configured. Set EODHD_API_KEY or enable the Yahoo fallback.")
	}
	price, found, err := a.Prices.GetCurrentPrice(ctx, ticker)
	if err != nil {
		return fail("Quote lookup failed: %v", err)
	}
	if !found {
		return fail("No current price for %s", ticker)
	}

	fmt.Printf("%s %s\n", ticker, formatUSD(price))
	return subcommands.ExitSuccess
}

// healthCmd prints the diversification and sentiment report.
type healthCmd struct {
	refresh bool
}

func (*healthCmd) Name() string { return "health" }
func (*healthCmd) Synopsis() string {
	return "analyse diversification, concentration and news sentiment"
}
func (*healthCmd) Usage() string {
	return `playground [-user <id>] health [-r]

  Builds the portfolio health report, including the AI narrative when Gemini is configured.
`
}

func (c *healthCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.refresh, "r", false, "Ignore a cached report and rebuild it.")
}

func (c *healthCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.Close()

	report, err := a.HealthService.GetHealthReport(ctx, *userID, interfaces.HealthOptions{ForceRefresh: c.refresh})
	if err != nil {
		return fail("Error building health report: %v", err)
	}

	printMarkdown(healthMarkdown(report))
	return subcommands.ExitSuccess
}

// parseOrder builds an order from <ticker> <quantity>. An empty price
// leaves the order at market.
func parseOrder(action, price string, args []string) (models.Order, error) {
	if len(args) != 2 {
		return models.Order{}, fmt.Errorf("expected <ticker> <quantity>, got %d arguments", len(args))
	}

	qty, err := decimal.NewFromString(args[1])
	if err != nil {
		return models.Order{}, fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}

	order := models.Order{
		Ticker:   args[0],
		Quantity: qty,
		Action:   models.TradeAction(action),
	}
	if price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return models.Order{}, fmt.Errorf("invalid price %q: %w", price, err)
		}
		order.Price = p
	}
	return order, nil
}
