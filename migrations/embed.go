// Package migrations embeds the SQL schema files and registers them with
// the database layer at init time. Importing this package for side effects
// is enough to make Migrate apply the full schema:
//
//	import _ "github.com/ferncroft/helper-audit/migrations"
package migrations

import (
	"embed"

	"github.com/ferncroft/helper-audit/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
