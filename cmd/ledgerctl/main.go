// Command ledgerctl runs ledger maintenance tasks against the configured database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/ndewijer/Crypto-Ledger-Backend/internal/app"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/config"
	"github.com/ndewijer/Crypto-Ledger-Backend/internal/logger"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&migrateCmd{}, "")
	commander.Register(&portfolioCmd{}, "")
	commander.Register(&importCmd{}, "")
	commander.Register(&exportCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// openApp loads configuration and opens the database. Logs go to stderr so stdout
// carries only command output.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Scheduler.Enabled = false

	l := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: true}, os.Stderr)
	logger.SetGlobalLogger(l)
	return app.New(ctx, cfg, l)
}
