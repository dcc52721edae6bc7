package casework

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pswdo-albay/aics/internal/amountwords"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/platform/httpx"
	"github.com/pswdo-albay/aics/internal/shared"
)

const (
	// RoleHeader carries the role the caller acts as. It is not verified.
	RoleHeader = "X-Acting-Role"
	// IdempotencyHeader deduplicates retried mutations.
	IdempotencyHeader = "Idempotency-Key"

	idempotencyModule = "casework"
)

// Handler exposes the case API.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validator   *validator.Validate
	idempotency *shared.IdempotencyStore
}

// NewHandler constructs a Handler. A nil idempotency store disables
// Idempotency-Key handling.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New(), idempotency: idem}
}

// MountRoutes registers case routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cases", h.listCases)
	r.Get("/cases/edges", h.listEdges)
	r.Get("/cases/track/{controlNo}", h.trackCase)
	r.Get("/cases/{id}", h.showCase)
	r.Get("/cases/{id}/documents", h.listDocuments)
	r.Get("/cases/{id}/checklist", h.showChecklist)
	r.Get("/amount-in-words", h.amountInWords)
	r.Get("/ledger/integrity", h.integrity)

	r.Group(func(r chi.Router) {
		r.Use(h.idempotent)
		r.Post("/cases", h.createCase)
		r.Post("/cases/{id}/documents", h.submitDocument)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.requireRole, h.idempotent)
		r.Post("/cases/{id}/documents/verify", h.verifyDocument)
		r.Post("/cases/{id}/recommendation", h.recommend)
		r.Post("/cases/{id}/transitions", h.transition)
		r.Post("/cases/{id}/finance", h.clearFinance)
		r.Post("/cases/{id}/notes", h.addNote)
	})
}

var errorMappings = []httpx.Mapping{
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Title: "Invalid Transition"},
	{Err: ErrNotAllowed, Status: http.StatusConflict, Title: "Action Not Allowed"},
	{Err: documents.ErrVerificationNotAllowed, Status: http.StatusConflict, Title: "Verification Not Allowed"},
	{Err: shared.ErrIdempotencyConflict, Status: http.StatusConflict, Title: "Duplicate Request"},
	{Err: ErrNotFound, Status: http.StatusNotFound, Title: "Case Not Found"},
	{Err: documents.ErrDocumentNotFound, Status: http.StatusNotFound, Title: "Document Not Found"},
	{Err: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Err: documents.ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Err: ledger.ErrValidation, Status: http.StatusBadRequest, Title: "Ledger Validation Error"},
	{Err: amountwords.ErrOutOfRange, Status: http.StatusBadRequest, Title: "Amount Out Of Range"},
}

func (h *Handler) requireRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, err := ParseRole(r.Header.Get(RoleHeader))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Acting Role Required", fmt.Sprintf("%s header must name a known role", RoleHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), string(role))))
	})
}

// idempotent claims the Idempotency-Key before the handler runs and releases
// it when the handler does not succeed.
func (h *Handler) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" || h.idempotency == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, err, errorMappings...)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			if err := h.idempotency.Delete(r.Context(), key, idempotencyModule); err != nil {
				h.logger.Warn("idempotency release failed", slog.Any("error", err))
			}
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func actingRole(r *http.Request) Role {
	return Role(shared.ActorFromContext(r.Context()))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeAndValidate(r, h.validator, target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			httpx.ValidationProblem(w, err)
			return false
		}
		httpx.RespondError(w, err, errorMappings...)
		return false
	}
	return true
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed case id", ErrValidation), errorMappings...)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	var in CreateCaseInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.service.CreateCase(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("q")}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
		filter.Status = status
	}
	if raw := q.Get("assistance_type"); raw != "" {
		t, err := documents.ParseAssistanceType(raw)
		if err != nil {
			httpx.RespondError(w, err, errorMappings...)
			return
		}
		filter.AssistanceType = t
	}
	httpx.JSON(w, http.StatusOK, h.service.List(r.Context(), filter))
}

func (h *Handler) listEdges(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, Edges())
}

func (h *Handler) showCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) trackCase(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Track(r.Context(), chi.URLParam(r, "controlNo"))
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	docs, err := h.service.Documents(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) submitDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var in documents.SubmitInput
	if !h.decode(w, r, &in) {
		return
	}
	doc, err := h.service.SubmitDocument(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

type verifyRequest struct {
	DocType    string `json:"doc_type" validate:"required"`
	VerifierID string `json:"verifier_id" validate:"required,max=120"`
}

func (h *Handler) verifyDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.VerifyDocument(r.Context(), id, req.DocType, req.VerifierID, actingRole(r))
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) showChecklist(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	gate, err := h.service.Checklist(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, gate)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var in RecommendInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.service.Recommend(r.Context(), id, actingRole(r), in)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

type transitionRequest struct {
	To string `json:"to" validate:"required"`
	Payload
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	target, err := ParseStatus(req.To)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	c, err := h.service.Transition(r.Context(), id, target, actingRole(r), req.Payload)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) clearFinance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var in FinanceInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.service.ClearFinance(r.Context(), id, actingRole(r), in)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

type noteRequest struct {
	Author string `json:"author" validate:"max=120"`
	Note   string `json:"note" validate:"required,max=2000"`
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if !h.decode(w, r, &req) {
		return
	}
	author := req.Author
	if strings.TrimSpace(author) == "" {
		author = string(actingRole(r))
	}
	c, err := h.service.AddNote(r.Context(), id, author, req.Note)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) amountInWords(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: amount must be an integer", ErrValidation), errorMappings...)
		return
	}
	words, err := h.service.AmountInWords(amount)
	if err != nil {
		httpx.RespondError(w, err, errorMappings...)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"amount": amount, "words": words})
}

func (h *Handler) integrity(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.CheckIntegrity(r.Context()))
}
