package reports

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/platform/httpx"
)

// Source supplies the data a summary is built from.
type Source interface {
	List(ctx context.Context, f casework.ListFilter) []casework.Case
	Ledger(f ledger.Filter) []ledger.Entry
}

// Service builds summaries. Concurrent requests share one build.
type Service struct {
	source Source
	cfg    ledger.Config
	now    func() time.Time
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(source Source, cfg ledger.Config, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{source: source, cfg: cfg, now: now}
}

// Summary builds the current management summary.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	ch := s.group.DoChan("summary", func() (interface{}, error) {
		cases := s.source.List(ctx, casework.ListFilter{})
		entries := s.source.Ledger(ledger.Filter{})
		return Build(cases, entries, s.cfg, s.now().UTC()), nil
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/summary", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("build summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
