package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/bobmcallan/playground/internal/app"
	"github.com/bobmcallan/playground/internal/common"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&portfolioCmd{}, "portfolio")
	c.Register(&healthCmd{}, "portfolio")

	c.Register(&tradeCmd{action: "buy"}, "trading")
	c.Register(&tradeCmd{action: "sell"}, "trading")
	c.Register(&estimateCmd{}, "trading")
	c.Register(&quoteCmd{}, "trading")
}

var configPath = flag.String("config", "", "Path to playground.toml. Defaults to PLAYGROUND_CONFIG.")
var userID = flag.String("user", common.DefaultUserID, "Portfolio owner to act as.")
var plain = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal.")

// openApp builds the application against the configured storage and clients.
func openApp() (*app.App, error) {
	a, err := app.NewApp(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	if *plain {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
