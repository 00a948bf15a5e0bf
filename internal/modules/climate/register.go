package climate

import (
	"database/sql"
	"net/http"

	"surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, conn *sql.DB, dialect db.Dialect) {
	climateRepository := repository.NewRepository(conn, dialect)
	climateService := service.NewService(climateRepository)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}
