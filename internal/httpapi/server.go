package httpapi

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"surfsup-server/internal/config"
	"surfsup-server/internal/metrics"
)

func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.HTTPMetrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, mux, m),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler wraps mux with the middleware chain, outermost first:
// request ID, instrumentation, rate limit (when enabled).
func NewHandler(cfg config.Config, mux *http.ServeMux, m *metrics.HTTPMetrics) http.Handler {
	var h http.Handler = mux
	if cfg.RateLimitRPS > 0 {
		h = rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst), h)
	}
	return requestID(instrument(m, h))
}
