package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

type portfolioCmd struct {
	user string
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "print the current portfolio valuation as JSON" }
func (*portfolioCmd) Usage() string {
	return `ledgerctl portfolio [-user <id>]

  Values the user's holdings at current prices.
`
}

func (p *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.user, "user", model.DefaultUserID, "The ledger user.")
}

func (p *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	snapshot, err := a.Services.Portfolio.GetPortfolio(ctx, p.user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
