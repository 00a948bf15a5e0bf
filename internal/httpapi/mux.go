package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"surfsup-server/internal/metrics"
)

// NewMux returns a mux with the operational routes registered.
// Feature routes are added by their own RegisterFeature.
func NewMux(db *sql.DB, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	return mux
}
