package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/observability"
	"github.com/pswdo-albay/aics/internal/platform/httpx"
	"github.com/pswdo-albay/aics/internal/reports"
	"github.com/pswdo-albay/aics/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	CaseHandler   *casework.Handler
	LedgerHandler *ledger.Handler
	ReportHandler *reports.Handler
	JobHandler    *jobs.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.CaseHandler != nil {
		params.CaseHandler.MountRoutes(r)
	}
	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		params.ReportHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
