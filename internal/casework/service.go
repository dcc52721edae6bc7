package casework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pswdo-albay/aics/internal/amountwords"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/shared"
)

// Auditor persists audit records.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TransitionRecorder observes transition outcomes.
type TransitionRecorder interface {
	RecordTransition(from, to, outcome string)
}

// CreateCaseInput is the intake form.
type CreateCaseInput struct {
	BeneficiaryID          string                   `json:"beneficiary_id" validate:"required,max=64"`
	AssistanceType         documents.AssistanceType `json:"assistance_type" validate:"required"`
	ReferringParty         string                   `json:"referring_party" validate:"max=160"`
	Cluster                string                   `json:"cluster" validate:"max=80"`
	OfficerName            string                   `json:"officer_name" validate:"max=120"`
	RequiresRepresentative bool                     `json:"requires_representative"`
}

// RecommendInput sets the recommended amount and modality.
type RecommendInput struct {
	Amount    int64    `json:"amount" validate:"gt=0"`
	Modality  Modality `json:"modality"`
	BasisLink string   `json:"basis_link" validate:"omitempty,url"`
}

// FinanceInput records obligation and disbursement voucher numbers.
type FinanceInput struct {
	ORSNo string `json:"ors_no" validate:"required,max=64"`
	DVNo  string `json:"dv_no" validate:"max=64"`
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status         Status
	AssistanceType documents.AssistanceType
	Search         string
}

func (f ListFilter) match(c Case) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.AssistanceType != "" && c.AssistanceType != f.AssistanceType {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(c.ControlNo), q) ||
			strings.Contains(strings.ToLower(c.BeneficiaryID), q)
	}
	return true
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditor records case mutations to the given sink.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

// WithTransitionRecorder reports transition outcomes.
func WithTransitionRecorder(r TransitionRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithControlNumbers overrides the control number sequence.
func WithControlNumbers(n *ControlNumbers) Option {
	return func(s *Service) {
		if n != nil {
			s.control = n
		}
	}
}

// Service is the single entry point for case operations.
type Service struct {
	store     *MemoryStore
	documents *documents.Registry
	ledger    *ledger.Engine
	control   *ControlNumbers
	now       func() time.Time
	logger    *slog.Logger
	audit     Auditor
	recorder  TransitionRecorder
}

// NewService wires the case store, document registry and ledger.
func NewService(store *MemoryStore, docs *documents.Registry, engine *ledger.Engine, opts ...Option) *Service {
	s := &Service{
		store:     store,
		documents: docs,
		ledger:    engine,
		control:   NewControlNumbers(1),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCase registers an intake. The case starts in New with a single
// history record attributed to the public.
func (s *Service) CreateCase(ctx context.Context, in CreateCaseInput) (Case, error) {
	beneficiary := strings.TrimSpace(in.BeneficiaryID)
	if beneficiary == "" {
		return Case{}, fmt.Errorf("%w: beneficiary id required", ErrValidation)
	}
	if !in.AssistanceType.Valid() {
		return Case{}, fmt.Errorf("%w: unknown assistance type %q", ErrValidation, in.AssistanceType)
	}
	at := s.now().UTC()
	controlNo, err := s.control.Next(at.Year())
	if err != nil {
		return Case{}, err
	}
	c := Case{
		ID:             uuid.New(),
		ControlNo:      controlNo,
		BeneficiaryID:  beneficiary,
		AssistanceType: in.AssistanceType,
		Status:         StatusNew,
		Flags:          Flags{RequiresRepresentative: in.RequiresRepresentative},
		History: []HistoryRecord{{
			Status: StatusNew,
			At:     at,
			Actor:  RolePublic,
			Note:   "Submitted intake form.",
		}},
		OfficerName:    strings.TrimSpace(in.OfficerName),
		ReferringParty: strings.TrimSpace(in.ReferringParty),
		Cluster:        strings.TrimSpace(in.Cluster),
		CreatedAt:      at,
	}
	if err := s.store.Insert(c); err != nil {
		return Case{}, err
	}
	s.logger.Info("case created",
		slog.String("case_id", c.ID.String()),
		slog.String("control_no", c.ControlNo),
		slog.String("assistance_type", string(c.AssistanceType)),
	)
	s.record(ctx, string(RolePublic), "case.created", c, map[string]any{"assistance_type": c.AssistanceType})
	return c, nil
}

// SubmitDocument attaches a document while the case still accepts them.
func (s *Service) SubmitDocument(ctx context.Context, caseID uuid.UUID, in documents.SubmitInput) (documents.Document, error) {
	var doc documents.Document
	updated, err := s.store.WithCase(ctx, caseID, func(c *Case) error {
		switch c.Status {
		case StatusNew, StatusScreening, StatusReturned:
		default:
			return fmt.Errorf("%w: documents cannot be submitted while %s", ErrNotAllowed, c.Status)
		}
		d, err := s.documents.Submit(ctx, c.ID, in)
		if err != nil {
			return err
		}
		if d.Confidential {
			c.Flags.HasConfidentialDocuments = true
		}
		doc = d
		return nil
	})
	if err != nil {
		return documents.Document{}, err
	}
	s.record(ctx, shared.ActorFromContext(ctx), "case.document_submitted", updated, map[string]any{"doc_type": doc.DocType})
	return doc, nil
}

// VerifyDocument marks the latest document of docType verified. Only a case
// officer may verify, and only while the case is in Screening.
func (s *Service) VerifyDocument(ctx context.Context, caseID uuid.UUID, docType, verifierID string, role Role) (documents.Document, error) {
	var doc documents.Document
	updated, err := s.store.WithCase(ctx, caseID, func(c *Case) error {
		if role != RoleCaseOfficer {
			return fmt.Errorf("%w: role %q may not verify documents", documents.ErrVerificationNotAllowed, role)
		}
		if c.Status != StatusScreening {
			return fmt.Errorf("%w: case is %s, not Screening", documents.ErrVerificationNotAllowed, c.Status)
		}
		d, err := s.documents.Verify(ctx, c.ID, docType, verifierID, s.now())
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return documents.Document{}, err
	}
	s.record(ctx, string(role), "case.document_verified", updated, map[string]any{"doc_type": doc.DocType, "verifier": verifierID})
	return doc, nil
}

// Recommend sets the recommended amount and modality during Screening. The
// amount in words is recomputed from the amount.
func (s *Service) Recommend(ctx context.Context, caseID uuid.UUID, role Role, in RecommendInput) (Case, error) {
	if in.Amount <= 0 {
		return Case{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	modality := in.Modality
	if modality == "" {
		modality = ModalityGL
	}
	if !modality.Valid() {
		return Case{}, fmt.Errorf("%w: unknown modality %q", ErrValidation, in.Modality)
	}
	words, err := amountwords.Format(in.Amount)
	if err != nil {
		return Case{}, err
	}
	updated, err := s.store.WithCase(ctx, caseID, func(c *Case) error {
		if role != RoleCaseOfficer {
			return fmt.Errorf("%w: role %q may not set a recommendation", ErrNotAllowed, role)
		}
		if c.Status != StatusScreening {
			return fmt.Errorf("%w: recommendation can only be set during Screening, case is %s", ErrNotAllowed, c.Status)
		}
		c.Recommendation = &Recommendation{
			Amount:        in.Amount,
			AmountInWords: words,
			Modality:      modality,
			BasisLink:     strings.TrimSpace(in.BasisLink),
			SetAt:         s.now().UTC(),
		}
		return nil
	})
	if err != nil {
		return Case{}, err
	}
	s.record(ctx, string(role), "case.recommended", updated, map[string]any{"amount": in.Amount, "modality": modality})
	return updated, nil
}

// Transition moves a case to target. The ledger entry an edge produces is
// appended before the case is committed; any error leaves the case, its
// documents and the ledger unchanged. Ledger observers run after the case
// lock is released.
func (s *Service) Transition(ctx context.Context, caseID uuid.UUID, target Status, role Role, p Payload) (Case, error) {
	var (
		from    Status
		written []ledger.Entry
	)
	updated, err := s.store.WithCase(ctx, caseID, func(c *Case) error {
		from = c.Status
		gate := documents.Evaluate(c.AssistanceType, s.documents.ForCase(c.ID))
		next, entry, err := Plan(*c, target, role, p, gate, s.now().UTC())
		if err != nil {
			return err
		}
		if entry != nil {
			written, err = s.ledger.Write(ctx, *entry)
			if err != nil {
				return fmt.Errorf("casework: ledger append: %w", err)
			}
		}
		*c = next
		return nil
	})
	if err != nil {
		s.observe(from, target, "rejected")
		s.logger.Warn("transition rejected",
			slog.String("case_id", caseID.String()),
			slog.String("from", string(from)),
			slog.String("to", string(target)),
			slog.String("role", string(role)),
			slog.Any("error", err),
		)
		return Case{}, err
	}
	s.ledger.Notify(ctx, written)
	s.observe(from, target, "applied")
	s.logger.Info("case transitioned",
		slog.String("case_id", updated.ID.String()),
		slog.String("control_no", updated.ControlNo),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.String("role", string(role)),
		slog.Int("ledger_entries", len(written)),
	)
	meta := map[string]any{"from": from, "to": target}
	if len(written) > 0 {
		meta["ledger_entry_id"] = written[0].ID.String()
	}
	s.record(ctx, string(role), "case.transitioned", updated, meta)
	return updated, nil
}

// ClearFinance records ORS/DV numbers and marks finance cleared. The case
// must be Approved.
func (s *Service) ClearFinance(ctx context.Context, caseID uuid.UUID, role Role, in FinanceInput) (Case, error) {
	ors := strings.TrimSpace(in.ORSNo)
	if ors == "" {
		return Case{}, fmt.Errorf("%w: ORS number required", ErrValidation)
	}
	updated, err := s.store.WithCase(ctx, caseID, func(c *Case) error {
		if role != RoleHead && role != RoleCaseOfficer {
			return fmt.Errorf("%w: role %q may not clear finance", ErrNotAllowed, role)
		}
		if c.Status != StatusApproved {
			return fmt.Errorf("%w: finance can only be cleared for Approved cases, case is %s", ErrNotAllowed, c.Status)
		}
		at := s.now().UTC()
		c.Finance.ORSNo = ors
		c.Finance.DVNo = strings.TrimSpace(in.DVNo)
		c.Finance.ClearedAt = &at
		c.Flags.FinanceCleared = true
		return nil
	})
	if err != nil {
		return Case{}, err
	}
	s.record(ctx, string(role), "case.finance_cleared", updated, map[string]any{"ors_no": ors})
	return updated, nil
}

// AddNote appends an internal staff note.
func (s *Service) AddNote(ctx context.Context, caseID uuid.UUID, author, note string) (Case, error) {
	author = strings.TrimSpace(author)
	note = strings.TrimSpace(note)
	if author == "" || note == "" {
		return Case{}, fmt.Errorf("%w: note author and text required", ErrValidation)
	}
	return s.store.WithCase(ctx, caseID, func(c *Case) error {
		c.Notes = append(c.Notes, InternalNote{Author: author, Note: note, At: s.now().UTC()})
		return nil
	})
}

// Get returns a case by id.
func (s *Service) Get(ctx context.Context, caseID uuid.UUID) (Case, error) {
	return s.store.Get(caseID)
}

// GetByControlNo returns a case by control number.
func (s *Service) GetByControlNo(ctx context.Context, controlNo string) (Case, error) {
	return s.store.FindByControlNo(strings.TrimSpace(controlNo))
}

// Track returns the public tracking view for controlNo.
func (s *Service) Track(ctx context.Context, controlNo string) (Tracking, error) {
	c, err := s.GetByControlNo(ctx, controlNo)
	if err != nil {
		return Tracking{}, err
	}
	t := Tracking{
		ControlNo:      c.ControlNo,
		AssistanceType: c.AssistanceType,
		Status:         c.Status,
		SubReason:      c.SubReason,
	}
	if last, ok := c.LastHistory(); ok {
		t.LastUpdated = last.At
	}
	return t, nil
}

// List returns cases matching f, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) []Case {
	all := s.store.List()
	out := all[:0]
	for _, c := range all {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Documents returns the documents submitted for a case.
func (s *Service) Documents(ctx context.Context, caseID uuid.UUID) ([]documents.Document, error) {
	if _, err := s.store.Get(caseID); err != nil {
		return nil, err
	}
	return s.documents.ForCase(caseID), nil
}

// Checklist evaluates the document gate for a case.
func (s *Service) Checklist(ctx context.Context, caseID uuid.UUID) (documents.GateResult, error) {
	c, err := s.store.Get(caseID)
	if err != nil {
		return documents.GateResult{}, err
	}
	return documents.Evaluate(c.AssistanceType, s.documents.ForCase(caseID)), nil
}

// BudgetSnapshot folds the ledger for source.
func (s *Service) BudgetSnapshot(source ledger.FundSource) (ledger.Snapshot, error) {
	return s.ledger.Snapshot(source)
}

// Ledger lists ledger entries matching f.
func (s *Service) Ledger(f ledger.Filter) []ledger.Entry {
	return s.ledger.List(f)
}

// AmountInWords formats amount as words.
func (s *Service) AmountInWords(amount int64) (string, error) {
	return amountwords.Format(amount)
}

func (s *Service) observe(from, to Status, outcome string) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordTransition(string(from), string(to), outcome)
}

func (s *Service) record(ctx context.Context, actor, action string, c Case, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["control_no"] = c.ControlNo
	meta["status"] = c.Status
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "case",
		EntityID: c.ID.String(),
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
