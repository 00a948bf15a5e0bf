// Command climatedb creates or checks the climate dataset schema.
//
//	climatedb migrate   apply pending schema migrations
//	climatedb verify    check that the tables read by the API exist
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"surfsup-server/internal/config"
	db "surfsup-server/internal/db"
	"surfsup-server/internal/db/schema"
	"surfsup-server/internal/logging"
)

const appName = "climatedb"

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	var level slog.LevelVar
	slog.SetDefault(logging.New(cfg, version, appName, &level))

	if err := run(context.Background(), cfg, os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, command string) error {
	dialect, err := db.ParseDialect(cfg.Driver)
	if err != nil {
		return err
	}

	switch command {
	case "migrate":
		cfg.ReadOnly = false
	case "verify":
		cfg.ReadOnly = true
	default:
		usage()
		return fmt.Errorf("unknown command")
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if command == "migrate" {
		if err := schema.Apply(conn, dialect); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	}

	if err := schema.Verify(ctx, conn); err != nil {
		return err
	}
	fmt.Println("schema ok")
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command>\n  migrate  apply pending schema migrations\n  verify   check the tables read by the API\n", os.Args[0])
}
