package db

import (
	"path/filepath"
	"strings"
	"testing"

	"surfsup-server/internal/config"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{in: "sqlite3", want: DialectSQLite3},
		{in: " SQLite ", want: DialectSQLite},
		{in: "postgres", want: DialectPostgres},
		{in: "mysql", want: DialectMySQL},
		{in: "oracle", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDialect(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDialect(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDialect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT tobs FROM measurement WHERE station = ? AND date >= ? AND note <> '?'"
	if got := DialectSQLite3.Rebind(q); got != q {
		t.Errorf("sqlite3 rebind changed query: %q", got)
	}
	if got := DialectMySQL.Rebind(q); got != q {
		t.Errorf("mysql rebind changed query: %q", got)
	}
	want := "SELECT tobs FROM measurement WHERE station = $1 AND date >= $2 AND note <> '?'"
	if got := DialectPostgres.Rebind(q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		dialect  Dialect
		cfg      config.Config
		want     string
		contains []string
		wantErr  bool
	}{
		{
			name:    "explicit dsn wins",
			dialect: DialectPostgres,
			cfg:     config.Config{DSN: "postgres://u:p@localhost/hawaii"},
			want:    "postgres://u:p@localhost/hawaii",
		},
		{
			name:    "server dsn required",
			dialect: DialectMySQL,
			cfg:     config.Config{},
			wantErr: true,
		},
		{
			name:    "mattn read-only",
			dialect: DialectSQLite3,
			cfg:     config.Config{Path: "Resources/hawaii.sqlite", ReadOnly: true},
			want:    "file:Resources/hawaii.sqlite?mode=ro&_busy_timeout=5000",
		},
		{
			name:     "mattn read-write",
			dialect:  DialectSQLite3,
			cfg:      config.Config{Path: filepath.Join(dir, "rw", "hawaii.sqlite")},
			contains: []string{"_foreign_keys=on", "_journal_mode=WAL"},
		},
		{
			name:    "modernc read-only",
			dialect: DialectSQLite,
			cfg:     config.Config{Path: "file:hawaii.sqlite?cache=shared", ReadOnly: true},
			want:    "file:hawaii.sqlite?cache=shared&mode=ro&_pragma=busy_timeout(5000)",
		},
		{
			name:    "sqlite without path",
			dialect: DialectSQLite,
			cfg:     config.Config{ReadOnly: true},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.dialect, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("buildDSN = %q, want %q", got, tt.want)
			}
			for _, c := range tt.contains {
				if !strings.Contains(got, c) {
					t.Errorf("buildDSN = %q, missing %q", got, c)
				}
			}
		})
	}
}

func TestOpen_ReadOnlyMissingFileFails(t *testing.T) {
	cfg := config.Config{
		Driver:   "sqlite3",
		Path:     filepath.Join(t.TempDir(), "missing.sqlite"),
		ReadOnly: true,
	}
	if db, err := Open(cfg); err == nil {
		_ = db.Close()
		t.Fatal("expected error opening a missing dataset read-only")
	}
}

func TestOpen_ReadWriteCreatesFile(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Config{
				Driver:       driver,
				Path:         filepath.Join(t.TempDir(), "nested", "hawaii.sqlite"),
				MaxOpenConns: 1,
				LogSQL:       true,
			}
			db, err := Open(cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = Close(db) }()
			if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
				t.Fatalf("exec: %v", err)
			}
		})
	}
}
