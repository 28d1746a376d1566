package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds every schema change; each file registers itself under its timestamped name.
var Migrations = migrate.NewMigrations()
