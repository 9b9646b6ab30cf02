package migrations

import "embed"

// SQLite contains the embedded SQLite migrations.
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres contains the embedded Postgres migrations.
//
//go:embed postgres/*.sql
var Postgres embed.FS
