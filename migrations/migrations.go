// Package migrations embeds the SQL schema and seed files so the migrate
// command works without the source tree.
package migrations

import "embed"

//go:embed sql/*.sql seeds/*.sql
var FS embed.FS

const (
	SQLDir   = "sql"
	SeedsDir = "seeds"
)
