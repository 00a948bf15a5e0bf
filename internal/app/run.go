package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"surfsup-server/internal/config"
	db "surfsup-server/internal/db"
	"surfsup-server/internal/db/schema"
	httpapi "surfsup-server/internal/httpapi"
	"surfsup-server/internal/metrics"
	climate "surfsup-server/internal/modules/climate"
	climateviews "surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/mqtt"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API until ctx is cancelled or a component fails.
// level is the logger's LevelVar; a watched config file may change it.
func Run(ctx context.Context, cfg config.Config, version string, level *slog.LevelVar) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"configFile", cfg.ConfigFile,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"rateLimitRPS", cfg.RateLimitRPS,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dialect, err := db.ParseDialect(cfg.Driver)
	if err != nil {
		return err
	}

	cfg.ReadOnly = true
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := schema.Verify(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("database connection successful")

	if err := climateviews.LoadTemplates(); err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	mux := httpapi.NewMux(dbConn, reg)
	climate.RegisterFeature(mux, dbConn, dialect)

	srv := httpapi.NewServer(cfg, mux, metrics.NewHTTPMetrics(reg))

	var publisher *mqtt.StatusPublisher
	if cfg.MQTTBroker != "" {
		publisher, err = mqtt.NewStatusPublisher(cfg, version, slog.Default())
		if err != nil {
			return err
		}
	} else {
		slog.Info("mqtt disabled (MQTT_BROKER not set)")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if publisher != nil {
		g.Go(func() error { return publisher.Run(gctx) })
	}

	if cfg.ConfigFile != "" {
		g.Go(func() error {
			return config.Watch(gctx, cfg.ConfigFile, func(next config.Config) {
				if next.LogLevel != level.Level() {
					slog.Info("log level changed", "from", level.Level().String(), "to", next.LogLevel.String())
					level.Set(next.LogLevel)
				}
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
