package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-most-recent-date.sql
var getMostRecentDateSQL string

//go:embed sql/get-precipitation-since.sql
var getPrecipitationSinceSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-station-temperatures.sql
var getStationTemperaturesSQL string

//go:embed sql/get-temperature-stats.sql
var getTemperatureStatsSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// ErrEmptyDataset is returned when a query needs at least one measurement
// row and the table is empty.
var ErrEmptyDataset = errors.New("dataset has no measurements")

type ClimateRepository interface {
	MostRecentDate(ctx context.Context) (types.Date, error)
	PrecipitationSince(ctx context.Context, cutoff types.Date) ([]types.Precipitation, error)
	ListStations(ctx context.Context) ([]string, error)
	MostActiveStation(ctx context.Context) (string, error)
	TemperaturesForStation(ctx context.Context, stationID string, cutoff types.Date) ([]float64, error)
	TemperatureStats(ctx context.Context, start types.Date, end *types.Date) (types.TemperatureStats, error)
}

type queries struct {
	mostRecentDate      string
	precipitationSince  string
	stations            string
	mostActiveStation   string
	stationTemperatures string
	temperatureStats    string
	temperatureRange    string
}

type repositoryImpl struct {
	db *sql.DB
	q  queries
}

// NewRepository binds the embedded queries to the placeholder style of
// dialect once, up front.
func NewRepository(conn *sql.DB, dialect db.Dialect) ClimateRepository {
	return &repositoryImpl{
		db: conn,
		q: queries{
			mostRecentDate:      dialect.Rebind(getMostRecentDateSQL),
			precipitationSince:  dialect.Rebind(getPrecipitationSinceSQL),
			stations:            dialect.Rebind(getStationsSQL),
			mostActiveStation:   dialect.Rebind(getMostActiveStationSQL),
			stationTemperatures: dialect.Rebind(getStationTemperaturesSQL),
			temperatureStats:    dialect.Rebind(getTemperatureStatsSQL),
			temperatureRange:    dialect.Rebind(getTemperatureStatsRangeSQL),
		},
	}
}

func (r *repositoryImpl) MostRecentDate(ctx context.Context) (types.Date, error) {
	var d types.Date
	if err := r.db.QueryRowContext(ctx, r.q.mostRecentDate).Scan(&d); err != nil {
		return types.Date{}, fmt.Errorf("most recent date: %w", err)
	}
	if d.IsZero() {
		return types.Date{}, ErrEmptyDataset
	}
	return d, nil
}

func (r *repositoryImpl) PrecipitationSince(ctx context.Context, cutoff types.Date) ([]types.Precipitation, error) {
	rows, err := r.db.QueryContext(ctx, r.q.precipitationSince, cutoff)
	if err != nil {
		return nil, fmt.Errorf("precipitation since %s: %w", cutoff, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()
	var out []types.Precipitation
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, err
		}
		if prcp.Valid {
			v := prcp.Float64
			p.Value = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) ListStations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.q.stations)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	out := []string{}
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID); err != nil {
			return nil, err
		}
		out = append(out, s.ID)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) MostActiveStation(ctx context.Context) (string, error) {
	var (
		station string
		count   int64
	)
	err := r.db.QueryRowContext(ctx, r.q.mostActiveStation).Scan(&station, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEmptyDataset
	}
	if err != nil {
		return "", fmt.Errorf("most active station: %w", err)
	}
	return station, nil
}

func (r *repositoryImpl) TemperaturesForStation(ctx context.Context, stationID string, cutoff types.Date) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, r.q.stationTemperatures, stationID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("temperatures for %s since %s: %w", stationID, cutoff, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature rows", "error", err)
		}
	}()
	out := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) TemperatureStats(ctx context.Context, start types.Date, end *types.Date) (types.TemperatureStats, error) {
	var row *sql.Row
	if end == nil {
		row = r.db.QueryRowContext(ctx, r.q.temperatureStats, start)
	} else {
		row = r.db.QueryRowContext(ctx, r.q.temperatureRange, start, *end)
	}

	var lo, avg, hi sql.NullFloat64
	if err := row.Scan(&lo, &avg, &hi); err != nil {
		return types.TemperatureStats{}, fmt.Errorf("temperature stats: %w", err)
	}
	return types.TemperatureStats{
		Min: nullableFloat(lo),
		Avg: nullableFloat(avg),
		Max: nullableFloat(hi),
	}, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
