package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/utils"
)

func parseDateParam(r *http.Request, name string) (types.Date, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return types.Date{}, fmt.Errorf("missing %s date", name)
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		return types.Date{}, fmt.Errorf("invalid %s date %q (expected YYYY-MM-DD)", name, raw)
	}
	return d, nil
}

// writeServiceError logs err and answers 500. An empty dataset gets its own
// message; other storage details stay in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	if errors.Is(err, repository.ErrEmptyDataset) {
		utils.WriteError(w, http.StatusInternalServerError, msg+": "+repository.ErrEmptyDataset.Error())
		return
	}
	utils.WriteError(w, http.StatusInternalServerError, msg)
}
