// Package migrations embeds the goose SQL migrations for the ledger schema.
package migrations

import "embed"

// FS holds every *.sql migration, ordered by their numeric prefix.
//
//go:embed *.sql
var FS embed.FS
