// Package migrations embeds the postgres schema migrations.
package migrations

import "embed"

// FS holds the numbered up/down SQL pairs
//
//go:embed *.sql
var FS embed.FS
