package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundSource identifies the budget pool an entry moves money against.
type FundSource string

const (
	// SourceMain is the annual appropriation.
	SourceMain FundSource = "MAIN"
	// SourceCA is the revolving cash advance with a ceiling.
	SourceCA FundSource = "CA"
)

// Valid reports whether s is a known fund source.
func (s FundSource) Valid() bool {
	return s == SourceMain || s == SourceCA
}

// Label returns the display name of the fund source.
func (s FundSource) Label() string {
	switch s {
	case SourceMain:
		return "Main Budget"
	case SourceCA:
		return "Cash Advance"
	default:
		return string(s)
	}
}

// ParseFundSource maps a raw value onto a FundSource.
func ParseFundSource(raw string) (FundSource, error) {
	s := FundSource(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown fund source %q", ErrValidation, raw)
	}
	return s, nil
}

// EntryKind classifies a ledger movement.
type EntryKind string

const (
	KindPrecommit EntryKind = "precommit"
	KindDisburse  EntryKind = "disburse"
	KindReplenish EntryKind = "replenish"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	switch k {
	case KindPrecommit, KindDisburse, KindReplenish:
		return true
	}
	return false
}

// ParseEntryKind maps a raw value onto an EntryKind.
func ParseEntryKind(raw string) (EntryKind, error) {
	k := EntryKind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown entry kind %q", ErrValidation, raw)
	}
	return k, nil
}

// allowedKinds lists the entry kinds each fund source accepts. Only the cash
// advance is ever replenished.
var allowedKinds = map[FundSource]map[EntryKind]bool{
	SourceMain: {KindPrecommit: true, KindDisburse: true},
	SourceCA:   {KindPrecommit: true, KindDisburse: true, KindReplenish: true},
}

// Entry is a single immutable ledger movement.
type Entry struct {
	ID                uuid.UUID  `json:"id"`
	At                time.Time  `json:"date"`
	CaseID            *uuid.UUID `json:"case_id,omitempty"`
	Source            FundSource `json:"source"`
	Kind              EntryKind  `json:"entry"`
	Amount            int64      `json:"amount"`
	Note              string     `json:"note,omitempty"`
	ControlNo         string     `json:"control_no,omitempty"`
	RequiresPostAudit bool       `json:"requires_post_audit"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Source    FundSource
	Kind      EntryKind
	ControlNo string
	CaseID    *uuid.UUID
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e Entry) bool {
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.ControlNo != "" && e.ControlNo != f.ControlNo {
		return false
	}
	if f.CaseID != nil && (e.CaseID == nil || *e.CaseID != *f.CaseID) {
		return false
	}
	return true
}

// Snapshot is the derived state of one fund source.
type Snapshot struct {
	Source       FundSource `json:"source"`
	Name         string     `json:"name"`
	Allocated    int64      `json:"allocated,omitempty"`
	Ceiling      int64      `json:"ceiling,omitempty"`
	Precommitted int64      `json:"precommitted"`
	Disbursed    int64      `json:"disbursed"`
	Replenished  int64      `json:"replenished"`
	Balance      int64      `json:"balance"`

	// Cash advance policy metadata. ReplenishTo is informational only.
	ThresholdPercent *decimal.Decimal `json:"threshold_percent,omitempty"`
	ThresholdAmount  *decimal.Decimal `json:"threshold_amount,omitempty"`
	ReplenishTo      int64            `json:"replenish_to,omitempty"`
	PostAuditLimit   int64            `json:"post_audit_limit,omitempty"`
}

var (
	// ErrValidation marks an entry rejected for a non-positive amount or an
	// unknown source/kind pair.
	ErrValidation = errors.New("ledger: invalid entry")
	// ErrConfig indicates unusable budget configuration.
	ErrConfig = errors.New("ledger: invalid config")
)

// Validate checks the amount and the source/kind pair.
func Validate(e Entry) error {
	if e.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, e.Amount)
	}
	if !e.Source.Valid() {
		return fmt.Errorf("%w: unknown fund source %q", ErrValidation, e.Source)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown entry kind %q", ErrValidation, e.Kind)
	}
	if !allowedKinds[e.Source][e.Kind] {
		return fmt.Errorf("%w: %s entries are not allowed on %s", ErrValidation, e.Kind, e.Source)
	}
	return nil
}
