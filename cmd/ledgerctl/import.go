package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

type importCmd struct {
	broker      string
	credentials string
	user        string
	start       string
	end         string
	mock        bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import trade history from a broker" }
func (*importCmd) Usage() string {
	return `ledgerctl import -broker <coinbase|robinhood> [-credentials <file>] [-user <id>] [-start <date>] [-end <date>] [-mock]

  Fetches the broker's trade history and inserts the records not already in the
  ledger. The credentials file holds the JSON object the broker expects, for
  Coinbase the downloaded API key file.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.broker, "broker", model.SourceCoinbase, "The broker to import from.")
	f.StringVar(&c.credentials, "credentials", "", "Path to a JSON credentials file.")
	f.StringVar(&c.user, "user", model.DefaultUserID, "The ledger user.")
	f.StringVar(&c.start, "start", "", "Earliest trade date (YYYY-MM-DD).")
	f.StringVar(&c.end, "end", "", "Latest trade date (YYYY-MM-DD).")
	f.BoolVar(&c.mock, "mock", false, "Generate synthetic Coinbase records instead of calling the API.")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req := request.ImportRequest{
		Broker:    c.broker,
		UserID:    c.user,
		StartDate: c.start,
		EndDate:   c.end,
		UseMock:   c.mock,
	}
	if c.credentials != "" {
		raw, err := os.ReadFile(c.credentials)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading credentials: %v\n", err)
			return subcommands.ExitFailure
		}
		req.Credentials = raw
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	result, err := a.Services.Imports.Import(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, apperrors.UserMessage(err))
		return subcommands.ExitFailure
	}

	fmt.Println(result.Message)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %s %s %s: %s\n",
			e.Transaction.Date.Format("2006-01-02"), e.Transaction.Type, e.Transaction.Symbol, e.Error)
	}
	return subcommands.ExitSuccess
}
