package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"surfsup-server/internal/config"
)

// New builds the process logger. level is shared with the config watcher so
// LOG_LEVEL changes apply without a restart.
func New(cfg config.Config, version string, appName string, level *slog.LevelVar) *slog.Logger {
	return newWithWriter(os.Stdout, cfg, version, appName, level)
}

func newWithWriter(w io.Writer, cfg config.Config, version string, appName string, level *slog.LevelVar) *slog.Logger {
	level.Set(cfg.LogLevel)

	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
