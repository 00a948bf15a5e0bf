package controller

import (
	"bytes"
	"encoding/base64"
	"log/slog"
	"net/http"

	"surfsup-server/internal/utils"
)

func (c *climateControllerImpl) handleHome(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := c.renderHome(&buf); err != nil {
		slog.ErrorContext(r.Context(), "home render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	prcp, err := c.service.Precipitation(r.Context())
	if err != nil {
		writeServiceError(w, r, "failed to load precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, prcp)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, r, "failed to load stations", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	hist, err := c.service.TemperatureHistogram(r.Context())
	if err != nil {
		writeServiceError(w, r, "failed to build temperature histogram", err)
		return
	}
	slog.DebugContext(r.Context(), "histogram rendered",
		"station", hist.StationID,
		"since", hist.Cutoff.String(),
		"observations", hist.Count,
		"png_bytes", len(hist.PNG),
	)
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"image": base64.StdEncoding.EncodeToString(hist.PNG),
	})
}

func (c *climateControllerImpl) handleStatsFrom(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.service.TemperatureStats(r.Context(), start, nil)
	if err != nil {
		writeServiceError(w, r, "failed to load temperature stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (c *climateControllerImpl) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.service.TemperatureStats(r.Context(), start, &end)
	if err != nil {
		writeServiceError(w, r, "failed to load temperature stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
