// Package casework owns the lifecycle of assistance cases: intake, screening,
// approval and completion, and the ledger movements those steps cause.
package casework

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
)

// Status is a case lifecycle status.
type Status string

const (
	StatusNew         Status = "New"
	StatusScreening   Status = "Screening"
	StatusReturned    Status = "Returned"
	StatusForApproval Status = "For Approval"
	StatusApproved    Status = "Approved"
	StatusCompleted   Status = "Completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusScreening, StatusReturned, StatusForApproval, StatusApproved, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the display value or its compact form ("ForApproval").
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses {
		if strings.EqualFold(raw, string(s)) || strings.EqualFold(raw, strings.ReplaceAll(string(s), " ", "")) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

// Role is the actor a caller claims to act as. The engine trusts it.
type Role string

const (
	RoleCaseOfficer Role = "Case Officer"
	RoleHead        Role = "PSWDO Head"
	RolePublic      Role = "Public"
	RoleSystem      Role = "System"
)

var roleAliases = map[string]Role{
	"case officer": RoleCaseOfficer,
	"case_officer": RoleCaseOfficer,
	"officer":      RoleCaseOfficer,
	"pswdo head":   RoleHead,
	"head":         RoleHead,
	"public":       RolePublic,
	"system":       RoleSystem,
}

// ParseRole maps a header or form value onto a Role.
func ParseRole(raw string) (Role, error) {
	if role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
}

// Modality is the payment instrument used to release assistance.
type Modality string

const (
	ModalityCOE     Modality = "COE"
	ModalityGL      Modality = "GL"
	ModalityVoucher Modality = "Voucher"
	ModalityCash    Modality = "Cash"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityCOE, ModalityGL, ModalityVoucher, ModalityCash:
		return true
	}
	return false
}

// Recommendation is the amount and instrument set during screening. The words
// are computed whenever the amount is set, never separately.
type Recommendation struct {
	Amount        int64     `json:"amount"`
	AmountInWords string    `json:"amount_in_words"`
	Modality      Modality  `json:"modality"`
	BasisLink     string    `json:"basis_link,omitempty"`
	SetAt         time.Time `json:"set_at"`
}

// Flags are case level booleans.
type Flags struct {
	FinanceCleared           bool `json:"finance_cleared"`
	RequiresRepresentative   bool `json:"requires_representative"`
	HasConfidentialDocuments bool `json:"has_confidential_documents"`
}

// HistoryRecord is one status change.
type HistoryRecord struct {
	Status    Status    `json:"status"`
	At        time.Time `json:"date"`
	Actor     Role      `json:"actor"`
	Note      string    `json:"note,omitempty"`
	SubReason string    `json:"sub_reason,omitempty"`
}

// Finance tracks obligation and disbursement paperwork.
type Finance struct {
	ORSNo       string            `json:"ors_no,omitempty"`
	DVNo        string            `json:"dv_no,omitempty"`
	FundSource  ledger.FundSource `json:"fund_source,omitempty"`
	PrecommitAt *time.Time        `json:"precommit_at,omitempty"`
	ClearedAt   *time.Time        `json:"cleared_at,omitempty"`
}

// InternalNote is a staff-only remark.
type InternalNote struct {
	Author string    `json:"author"`
	Note   string    `json:"note"`
	At     time.Time `json:"date"`
}

// Case is a request for assistance.
type Case struct {
	ID             uuid.UUID                `json:"id"`
	ControlNo      string                   `json:"control_no"`
	BeneficiaryID  string                   `json:"beneficiary_id"`
	AssistanceType documents.AssistanceType `json:"assistance_type"`
	Status         Status                   `json:"status"`
	Recommendation *Recommendation          `json:"recommendation,omitempty"`
	// FundSource stays empty until the case is approved.
	FundSource     ledger.FundSource `json:"fund_source,omitempty"`
	SubReason      string            `json:"sub_reason,omitempty"`
	Flags          Flags             `json:"flags"`
	Finance        Finance           `json:"finance"`
	History        []HistoryRecord   `json:"history"`
	Notes          []InternalNote    `json:"internal_notes,omitempty"`
	OfficerName    string            `json:"officer_name,omitempty"`
	ReferringParty string            `json:"referring_party,omitempty"`
	Cluster        string            `json:"cluster,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Amount returns the recommended amount if one is set.
func (c Case) Amount() (int64, bool) {
	if c.Recommendation == nil {
		return 0, false
	}
	return c.Recommendation.Amount, true
}

// LastHistory returns the most recent history record.
func (c Case) LastHistory() (HistoryRecord, bool) {
	if len(c.History) == 0 {
		return HistoryRecord{}, false
	}
	return c.History[len(c.History)-1], true
}

// ReachedAt returns when the case first entered status.
func (c Case) ReachedAt(status Status) (time.Time, bool) {
	for _, h := range c.History {
		if h.Status == status {
			return h.At, true
		}
	}
	return time.Time{}, false
}

func (c Case) clone() Case {
	if c.Recommendation != nil {
		rec := *c.Recommendation
		c.Recommendation = &rec
	}
	c.Finance = c.Finance.clone()
	c.History = append([]HistoryRecord(nil), c.History...)
	c.Notes = append([]InternalNote(nil), c.Notes...)
	return c
}

func (f Finance) clone() Finance {
	if f.PrecommitAt != nil {
		at := *f.PrecommitAt
		f.PrecommitAt = &at
	}
	if f.ClearedAt != nil {
		at := *f.ClearedAt
		f.ClearedAt = &at
	}
	return f
}

// Tracking is the public view of a case looked up by control number.
type Tracking struct {
	ControlNo      string                   `json:"control_no"`
	AssistanceType documents.AssistanceType `json:"assistance_type"`
	Status         Status                   `json:"status"`
	SubReason      string                   `json:"sub_reason,omitempty"`
	LastUpdated    time.Time                `json:"last_updated"`
}

var (
	// ErrInvalidTransition covers an undefined edge, a disallowed role or an
	// unmet precondition. The case is left untouched.
	ErrInvalidTransition = errors.New("casework: invalid transition")
	// ErrNotAllowed indicates an action outside the statuses or roles that
	// permit it.
	ErrNotAllowed = errors.New("casework: action not allowed")
	// ErrNotFound indicates the case does not exist.
	ErrNotFound = errors.New("casework: case not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("casework: invalid input")
)
