package migrate

import "embed"

// FS carries the SQL migrations so binaries can migrate without the source tree.
//
//go:embed migrations/*.sql
var FS embed.FS

// EmbeddedDir is the goose dir inside FS.
const EmbeddedDir = "migrations"
