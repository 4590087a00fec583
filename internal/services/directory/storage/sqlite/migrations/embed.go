package migrations

import "embed"

// FS contains embedded SQLite migrations for directory storage.
//
//go:embed *.sql
var FS embed.FS
