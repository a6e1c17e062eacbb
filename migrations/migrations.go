// Package migrations embeds the versioned SQL schema so the server and the
// integration tests share one source of truth.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
