package database

import (
	"database/sql"
	"fmt"
)

// Open returns a *sql.DB for driver ("sqlite" or "postgres"). path is
// used by sqlite and dsn by postgres.
func Open(driver, path, dsn string) (*sql.DB, error) {
	switch driver {
	case "sqlite", "":
		return openSQLite(path)
	case "postgres":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
}
