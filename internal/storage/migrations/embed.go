package migrations

import "embed"

// FS holds the numbered SQL migrations applied by the sqlite store.
//
//go:embed *.sql
var FS embed.FS
