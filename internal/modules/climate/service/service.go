package service

import (
	"context"
	"fmt"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/modules/climate/views"
)

// LookbackDays is the width of the trailing window used by the
// precipitation and temperature-observation routes.
const LookbackDays = 365

type Service struct {
	repository repository.ClimateRepository
}

func NewService(repository repository.ClimateRepository) *Service {
	return &Service{repository: repository}
}

// OneYearCutoff is the most recent dataset date minus LookbackDays.
func (s *Service) OneYearCutoff(ctx context.Context) (types.Date, error) {
	recent, err := s.repository.MostRecentDate(ctx)
	if err != nil {
		return types.Date{}, err
	}
	return recent.AddDays(-LookbackDays), nil
}

// Precipitation maps each date in the trailing year to its rainfall.
// When a date has several rows, the last one in storage order wins.
func (s *Service) Precipitation(ctx context.Context) (map[string]*float64, error) {
	cutoff, err := s.OneYearCutoff(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repository.PrecipitationSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(rows))
	for _, row := range rows {
		out[row.Date.String()] = row.Value
	}
	return out, nil
}

func (s *Service) Stations(ctx context.Context) ([]string, error) {
	return s.repository.ListStations(ctx)
}

// TemperatureHistogram renders the trailing year of observations at the
// station with the most measurements.
func (s *Service) TemperatureHistogram(ctx context.Context) (types.TemperatureHistogram, error) {
	station, err := s.repository.MostActiveStation(ctx)
	if err != nil {
		return types.TemperatureHistogram{}, err
	}
	cutoff, err := s.OneYearCutoff(ctx)
	if err != nil {
		return types.TemperatureHistogram{}, err
	}
	temps, err := s.repository.TemperaturesForStation(ctx, station, cutoff)
	if err != nil {
		return types.TemperatureHistogram{}, err
	}

	img, err := views.RenderHistogramPNG(fmt.Sprintf("Temperature Observations for Station %s", station), temps)
	if err != nil {
		return types.TemperatureHistogram{}, fmt.Errorf("render histogram for %s: %w", station, err)
	}
	return types.TemperatureHistogram{
		StationID: station,
		Cutoff:    cutoff,
		Count:     len(temps),
		PNG:       img,
	}, nil
}

// TemperatureStats aggregates from start onward, or over [start, end] when
// end is set. An empty range yields all-nil fields.
func (s *Service) TemperatureStats(ctx context.Context, start types.Date, end *types.Date) (types.TemperatureStats, error) {
	return s.repository.TemperatureStats(ctx, start, end)
}
