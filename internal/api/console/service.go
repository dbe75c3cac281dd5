package console

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/revealx-tools/console/internal/api/schema"
	"github.com/revealx-tools/console/internal/config"
	"github.com/revealx-tools/console/internal/extrahop"
	"github.com/revealx-tools/console/internal/function"
	"github.com/revealx-tools/console/internal/hashmap"
	"github.com/revealx-tools/console/internal/session"
	"github.com/rs/zerolog/log"
)

// liveSessionCleanupInterval defines how often idle live vendor sessions are evicted
const liveSessionCleanupInterval = 5 * time.Minute

// Service represents the console API service
type Service struct {
	server *http.Server

	Config   *config.Config
	Sessions session.Storage

	// live caches connected vendor sessions by their console token hash.
	// A miss is recovered from the durable session storage via Restore.
	live *hashmap.ExpiringMap[string, *extrahop.Session]

	writer *schema.Writer
}

// Startup starts up the console API
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:    service.Config.ListenAddress,
		Handler: service.router(),
	}
	service.server = server
	return server.ListenAndServe()
}

func (service *Service) router() http.Handler {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the console API experienced an unexpected error")
		},
	}

	// Create the live vendor session cache
	service.live = hashmap.NewExpiring[string, *extrahop.Session](service.Config.SessionLifetime)
	service.live.ScheduleCleanupTask(liveSessionCleanupInterval)

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the session lifecycle endpoints
	router.Post("/v1/session", service.EndpointCreateSession)
	router.Get("/v1/session", service.secured(service.EndpointGetSession))
	router.Delete("/v1/session", service.secured(service.EndpointDeleteSession))

	// Register the dashboard controller endpoints
	router.Get("/v1/dashboards", service.secured(service.EndpointGetDashboards))
	router.Patch("/v1/dashboards/{id}", service.secured(service.EndpointEditDashboard))
	router.Patch("/v1/dashboards/{id}/sharing", service.secured(service.EndpointEditDashboardSharing))
	router.Delete("/v1/dashboards/{id}", service.secured(service.EndpointDeleteDashboard))
	router.Post("/v1/dashboards/bulk/owner", service.secured(service.EndpointBulkChangeOwner))
	router.Post("/v1/dashboards/bulk/sharing", service.secured(service.EndpointBulkModifySharing))
	router.Post("/v1/dashboards/bulk/delete", service.secured(service.EndpointBulkDelete))

	// Register the remaining vendor resource endpoints
	router.Get("/v1/users", service.secured(service.EndpointGetUsers))
	router.Get("/v1/appliances", service.secured(service.EndpointGetAppliances))
	router.Get("/v1/auditlog", service.secured(service.EndpointGetAuditLog))
	router.Get("/v1/auditlog/collect", service.secured(service.EndpointCollectAuditLog))
	router.Post("/v1/metrics/query", service.secured(service.EndpointQueryMetrics))
	router.Post("/v1/metrics/appliances", service.secured(service.EndpointCollectApplianceMetrics))
	router.Get("/v1/localities", service.secured(service.EndpointGetNetworkLocalities))
	router.Put("/v1/localities", service.secured(service.EndpointSaveNetworkLocalities))
	router.Post("/v1/localities", service.secured(service.EndpointCreateNetworkLocality))
	router.Patch("/v1/localities/{id}", service.secured(service.EndpointEditNetworkLocality))
	router.Delete("/v1/localities/{id}", service.secured(service.EndpointDeleteNetworkLocality))
	router.Post("/v1/devices/search", service.secured(service.EndpointSearchDevices))
	router.Post("/v1/devices/collect", service.secured(service.EndpointCollectDevices))

	return router
}

// Shutdown shuts down the console API
func (service *Service) Shutdown() {
	if service.live != nil {
		service.live.StopCleanupTask()
		service.live = nil
	}
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}

func (service *Service) secured(end http.HandlerFunc) http.HandlerFunc {
	return function.Nest(end, service.MiddlewareVerifySession)
}
