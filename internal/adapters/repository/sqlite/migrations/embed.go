// Package migrations embeds the SQLite schema for the tally store.
package migrations

import "embed"

// FS contains embedded SQLite migrations for the tally store.
//
//go:embed *.sql
var FS embed.FS
