package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/model"
)

type exportCmd struct {
	user string
	kind string
	out  string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions or the portfolio as CSV" }
func (*exportCmd) Usage() string {
	return `ledgerctl export [-kind <transactions|portfolio>] [-user <id>] [-o <file>]

  Writes the CSV export to the file, or to stdout when -o is omitted.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "transactions", "What to export: transactions or portfolio.")
	f.StringVar(&c.user, "user", model.DefaultUserID, "The ledger user.")
	f.StringVar(&c.out, "o", "", "Output file (defaults to stdout).")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.kind != "transactions" && c.kind != "portfolio" {
		fmt.Fprintf(os.Stderr, "unknown export kind %q\n", c.kind)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	var w io.Writer = os.Stdout
	if c.out != "" {
		f, err := os.Create(c.out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		w = f
	}

	if c.kind == "portfolio" {
		err = a.Services.Export.ExportPortfolioCSV(ctx, c.user, w)
	} else {
		err = a.Services.Export.ExportTransactionsCSV(ctx, c.user, w)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
