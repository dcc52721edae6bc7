package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pswdo-albay/aics/internal/platform/httpx"
)

// Handler exposes budget and ledger read endpoints.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers budget and ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/budget", h.listBudgets)
	r.Get("/budget/{source}", h.showBudget)
	r.Get("/ledger", h.listLedger)
}

var errorMappings = []httpx.Mapping{
	{Err: ErrValidation, Status: http.StatusBadRequest, Title: "Ledger Validation Error"},
}

func (h *Handler) listBudgets(w http.ResponseWriter, r *http.Request) {
	snapshots := make([]Snapshot, 0, 2)
	for _, source := range []FundSource{SourceMain, SourceCA} {
		snap, err := h.engine.Snapshot(source)
		if err != nil {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
		snapshots = append(snapshots, snap)
	}
	httpx.JSON(w, http.StatusOK, snapshots)
}

func (h *Handler) showBudget(w http.ResponseWriter, r *http.Request) {
	source, err := ParseFundSource(chi.URLParam(r, "source"))
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	snap, err := h.engine.Snapshot(source)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	var filter Filter
	q := r.URL.Query()
	if raw := q.Get("source"); raw != "" {
		source, err := ParseFundSource(raw)
		if err != nil {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
		filter.Source = source
	}
	if raw := q.Get("kind"); raw != "" {
		kind, err := ParseEntryKind(raw)
		if err != nil {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
		filter.Kind = kind
	}
	filter.ControlNo = q.Get("control_no")
	httpx.JSON(w, http.StatusOK, h.engine.List(filter))
}
