package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/database"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate

  Applies every pending migration to DB_PATH and prints the schema version.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	current, latest, err := database.SchemaVersion(ctx, a.DB)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("schema version %d (latest %d)\n", current, latest)
	return subcommands.ExitSuccess
}
