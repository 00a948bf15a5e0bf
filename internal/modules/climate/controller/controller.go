package controller

import (
	"io"
	"net/http"

	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/modules/climate/views"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service    *service.Service
	renderHome func(w io.Writer) error
}

func NewClimateController(service *service.Service) ClimateController {
	return &climateControllerImpl{service: service, renderHome: views.RenderHome}
}

// RegisterRoutes adds the data routes. Literal segments take precedence
// over the {start} wildcard in ServeMux, so /api/v1.0/stations never parses
// as a date.
func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStatsFrom)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleStatsRange)
}
