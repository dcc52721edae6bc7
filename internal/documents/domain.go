// Package documents tracks supporting documents submitted against a case and
// decides whether the per-assistance-type checklist is satisfied.
package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AssistanceType enumerates the kinds of crisis assistance.
type AssistanceType string

const (
	AssistanceMedical   AssistanceType = "Medical"
	AssistanceBurial    AssistanceType = "Burial"
	AssistanceEducation AssistanceType = "Education"
	AssistanceTransport AssistanceType = "Transport"
	AssistanceFood      AssistanceType = "Food"
	AssistanceFinancial AssistanceType = "Financial"
)

// AssistanceTypes lists every assistance type in display order.
var AssistanceTypes = []AssistanceType{
	AssistanceMedical,
	AssistanceBurial,
	AssistanceEducation,
	AssistanceTransport,
	AssistanceFood,
	AssistanceFinancial,
}

// Valid reports whether t is a known assistance type.
func (t AssistanceType) Valid() bool {
	_, ok := checklists[t]
	return ok
}

// ParseAssistanceType maps a raw value onto an AssistanceType.
func ParseAssistanceType(raw string) (AssistanceType, error) {
	t := AssistanceType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown assistance type %q", ErrValidation, raw)
	}
	return t, nil
}

// Document is a supporting document submitted against one case. Only the
// verification fields change after submission.
type Document struct {
	ID           uuid.UUID  `json:"id"`
	CaseID       uuid.UUID  `json:"case_id"`
	DocType      string     `json:"doc_type"`
	Filename     string     `json:"filename,omitempty"`
	IssuedDate   string     `json:"issued_date,omitempty"`
	IsCTC        bool       `json:"is_ctc"`
	Confidential bool       `json:"confidential"`
	Notes        string     `json:"notes,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	VerifiedBy   string     `json:"verified_by,omitempty"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
}

// Verified reports whether the document carries a verification.
func (d Document) Verified() bool {
	return d.VerifiedAt != nil
}

// SubmitInput describes a document submission.
type SubmitInput struct {
	DocType      string `json:"doc_type" validate:"required,max=120"`
	Filename     string `json:"filename" validate:"max=255"`
	IssuedDate   string `json:"issued_date" validate:"omitempty,datetime=2006-01-02"`
	IsCTC        bool   `json:"is_ctc"`
	Confidential bool   `json:"confidential"`
	Notes        string `json:"notes" validate:"max=1000"`
}

var (
	// ErrDocumentNotFound indicates no submitted document of the requested type.
	ErrDocumentNotFound = errors.New("documents: document not found")
	// ErrVerificationNotAllowed indicates a verification outside screening or
	// by a role other than a case officer.
	ErrVerificationNotAllowed = errors.New("documents: verification not allowed")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("documents: invalid input")
)
