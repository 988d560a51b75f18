package route

import (
	"net/http"

	"helmetweb/internal/config"
	"helmetweb/internal/handler"
	"helmetweb/internal/logger"
	"helmetweb/internal/middleware"
	"helmetweb/internal/model"
	"helmetweb/internal/service/storage"
	"helmetweb/internal/web"

	"github.com/gorilla/mux"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Processor handler.UploadProcessor
	Store     *storage.FileStore
	Viewers   handler.ViewerRegistry
	Views     *web.Views
	Metrics   model.MetricsSnapshot
}

// SetupRoutes registers the page, artifact, progress and log endpoints and
// wraps the router with the no-cache middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, deps Dependencies) http.Handler {
	router := mux.NewRouter()

	// Pages
	router.HandleFunc("/", handler.IndexHandler(cfg, deps.Processor, deps.Views, deps.Metrics, logger)).
		Methods(http.MethodGet, http.MethodPost)

	// Annotated artifacts
	router.HandleFunc("/output/{filename}", handler.OutputHandler(deps.Store, logger)).
		Methods(http.MethodGet, http.MethodHead)

	// Progress events
	router.HandleFunc("/ws/progress", handler.ProgressWebsocketHandler(deps.Viewers, logger)).
		Methods(http.MethodGet)

	// Log endpoints
	router.HandleFunc("/logs/{level:info|warning|error}", handler.ShowLogsHandler(logger)).
		Methods(http.MethodGet)
	router.HandleFunc("/logs/{level:info|warning|error}/clear", handler.ClearLogsHandler(logger)).
		Methods(http.MethodPost)

	// Apply middleware
	return middleware.NoCache(router)
}
