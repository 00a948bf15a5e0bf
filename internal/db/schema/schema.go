// Package schema creates and verifies the climate dataset tables.
// Migrations are embedded and applied with golang-migrate; each file holds a
// single statement so every supported driver can run it without
// multi-statement support.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"surfsup-server/internal/db"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const migrationsDir = "sql"

// Apply runs every pending migration against conn. It does not close conn.
func Apply(conn *sql.DB, dialect db.Dialect) error {
	src, err := iofs.New(sqlFS, migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	drv, err := databaseDriver(conn, dialect)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	// m.Close would close conn as well; only the source is released here.
	defer func() {
		if err := src.Close(); err != nil {
			slog.Error("close migration source", "error", err)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	slog.Info("schema up to date", "driver", string(dialect), "version", version, "dirty", dirty)
	return nil
}

func databaseDriver(conn *sql.DB, dialect db.Dialect) (database.Driver, error) {
	var (
		drv database.Driver
		err error
	)
	switch dialect {
	case db.DialectSQLite3:
		drv, err = migratesqlite3.WithInstance(conn, &migratesqlite3.Config{})
	case db.DialectSQLite:
		drv, err = migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	case db.DialectPostgres:
		drv, err = migratepostgres.WithInstance(conn, &migratepostgres.Config{})
	case db.DialectMySQL:
		drv, err = migratemysql.WithInstance(conn, &migratemysql.Config{})
	default:
		return nil, fmt.Errorf("no migration driver for %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("%s migration driver: %w", dialect, err)
	}
	return drv, nil
}

type table struct {
	name    string
	columns []string
}

// Columns the read API depends on. Extra columns are ignored.
var required = []table{
	{name: "station", columns: []string{"id", "station"}},
	{name: "measurement", columns: []string{"id", "station", "date", "prcp", "tobs"}},
}

// Verify checks that the tables and columns read by the API exist.
// It returns an error naming the first missing table or column set.
func Verify(ctx context.Context, conn *sql.DB) error {
	for _, t := range required {
		q := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", strings.Join(t.columns, ", "), t.name)
		rows, err := conn.QueryContext(ctx, q)
		if err != nil {
			return fmt.Errorf("table %s with columns (%s) not readable: %w", t.name, strings.Join(t.columns, ", "), err)
		}
		if err := rows.Close(); err != nil {
			slog.Error("close verify rows", "table", t.name, "error", err)
		}
	}
	return nil
}
