package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names a registered database/sql driver.
type Dialect string

const (
	DialectSQLite3  Dialect = "sqlite3"  // github.com/mattn/go-sqlite3 (cgo)
	DialectSQLite   Dialect = "sqlite"   // modernc.org/sqlite (pure Go)
	DialectPostgres Dialect = "postgres" // github.com/lib/pq
	DialectMySQL    Dialect = "mysql"    // github.com/go-sql-driver/mysql
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectSQLite3, DialectSQLite, DialectPostgres, DialectMySQL:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (allowed: sqlite3, sqlite, postgres, mysql)", s)
	}
}

func (d Dialect) IsSQLite() bool {
	return d == DialectSQLite3 || d == DialectSQLite
}

// Rebind rewrites '?' placeholders to the dialect's native style.
// Queries are authored with '?'; only postgres needs '$n'.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
