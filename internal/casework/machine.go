package casework

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pswdo-albay/aics/internal/amountwords"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/shared"
)

// Payload carries the optional data a transition may need.
type Payload struct {
	Note       string            `json:"note"`
	SubReason  string            `json:"sub_reason"`
	FundSource ledger.FundSource `json:"fund_source"`
	Amount     *int64            `json:"amount"`
	Modality   Modality          `json:"modality"`
	BasisLink  string            `json:"basis_link"`
}

// Edge is one permitted status change and the roles allowed to make it.
type Edge struct {
	From  Status `json:"from"`
	To    Status `json:"to"`
	Roles []Role `json:"roles"`
}

type edge struct {
	from Status
	to   Status
}

// rule describes a single edge. stage applies payload data before the guard
// runs; effect may return the ledger entry the edge produces.
type rule struct {
	roles  []Role
	stage  func(next *Case, p Payload, at time.Time) error
	guard  func(next Case, p Payload, gate documents.GateResult) error
	effect func(next *Case, p Payload, at time.Time) *ledger.Entry
	note   func(next Case, p Payload) string
}

var transitions = map[edge]rule{
	{StatusNew, StatusScreening}: {
		roles: []Role{RoleSystem, RoleCaseOfficer},
		note:  fixedNote("Initial screening; verifying documents."),
	},
	{StatusScreening, StatusForApproval}: {
		roles: []Role{RoleCaseOfficer},
		stage: stageRecommendation,
		guard: guardForward,
		note: func(next Case, _ Payload) string {
			return fmt.Sprintf("Recommendation set to %s. Forwarded for approval.", shared.FormatPeso(next.Recommendation.Amount))
		},
	},
	{StatusScreening, StatusReturned}: {
		roles:  []Role{RoleCaseOfficer, RoleHead},
		guard:  requireSubReason,
		effect: setSubReason,
		note:   returnNote,
	},
	{StatusReturned, StatusScreening}: {
		roles: []Role{RoleCaseOfficer, RoleSystem},
		effect: func(next *Case, _ Payload, _ time.Time) *ledger.Entry {
			next.SubReason = ""
			return nil
		},
		note: fixedNote("Resubmitted for screening."),
	},
	{StatusForApproval, StatusApproved}: {
		roles:  []Role{RoleHead},
		guard:  guardApprove,
		effect: precommit,
		note: func(next Case, _ Payload) string {
			return fmt.Sprintf("Approved. Fund source: %s.", next.FundSource.Label())
		},
	},
	{StatusForApproval, StatusReturned}: {
		roles:  []Role{RoleHead},
		guard:  requireSubReason,
		effect: setSubReason,
		note:   returnNote,
	},
	{StatusApproved, StatusCompleted}: {
		roles:  []Role{RoleCaseOfficer},
		guard:  guardComplete,
		effect: disburse,
		note:   fixedNote("Assistance released and confirmed by beneficiary. Case marked as completed."),
	},
}

// Edges returns the transition table ordered by lifecycle position.
func Edges() []Edge {
	order := make(map[Status]int, len(Statuses))
	for i, s := range Statuses {
		order[s] = i
	}
	out := make([]Edge, 0, len(transitions))
	for e, r := range transitions {
		out = append(out, Edge{From: e.from, To: e.to, Roles: append([]Role(nil), r.roles...)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return order[out[i].From] < order[out[j].From]
		}
		return order[out[i].To] < order[out[j].To]
	})
	return out
}

// Plan computes the case that results from moving c to target. It does not
// mutate c. The returned entry, when non-nil, must be appended to the ledger
// before the new case value is stored.
func Plan(c Case, target Status, role Role, p Payload, gate documents.GateResult, at time.Time) (Case, *ledger.Entry, error) {
	r, ok := transitions[edge{c.Status, target}]
	if !ok {
		return c, nil, fmt.Errorf("%w: %s to %s is not a defined transition", ErrInvalidTransition, c.Status, target)
	}
	if !roleAllowed(r.roles, role) {
		return c, nil, fmt.Errorf("%w: role %q may not move a case from %s to %s", ErrInvalidTransition, role, c.Status, target)
	}

	next := c.clone()
	at = nextTimestamp(c, at)
	if r.stage != nil {
		if err := r.stage(&next, p, at); err != nil {
			return c, nil, err
		}
	}
	if r.guard != nil {
		if err := r.guard(next, p, gate); err != nil {
			return c, nil, err
		}
	}
	var entry *ledger.Entry
	if r.effect != nil {
		entry = r.effect(&next, p, at)
	}

	next.Status = target
	record := HistoryRecord{Status: target, At: at, Actor: role, Note: strings.TrimSpace(p.Note)}
	if record.Note == "" && r.note != nil {
		record.Note = r.note(next, p)
	}
	if target == StatusReturned {
		record.SubReason = next.SubReason
	}
	next.History = append(next.History, record)
	return next, entry, nil
}

// nextTimestamp keeps history strictly increasing when the clock stalls or
// moves backwards.
func nextTimestamp(c Case, at time.Time) time.Time {
	last, ok := c.LastHistory()
	if ok && !at.After(last.At) {
		return last.At.Add(time.Millisecond)
	}
	return at
}

func roleAllowed(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func fixedNote(note string) func(Case, Payload) string {
	return func(Case, Payload) string { return note }
}

func returnNote(next Case, _ Payload) string {
	return fmt.Sprintf("Returned with reason: %s.", next.SubReason)
}

func requireSubReason(_ Case, p Payload, _ documents.GateResult) error {
	if strings.TrimSpace(p.SubReason) == "" {
		return fmt.Errorf("%w: a sub-reason is required when returning a case", ErrInvalidTransition)
	}
	return nil
}

func setSubReason(next *Case, p Payload, _ time.Time) *ledger.Entry {
	next.SubReason = strings.TrimSpace(p.SubReason)
	return nil
}

func stageRecommendation(next *Case, p Payload, at time.Time) error {
	if p.Amount == nil && p.Modality == "" && p.BasisLink == "" {
		return nil
	}
	rec := Recommendation{Modality: ModalityGL, SetAt: at}
	if next.Recommendation != nil {
		rec = *next.Recommendation
	}
	if p.Amount != nil {
		words, err := amountwords.Format(*p.Amount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		rec.Amount = *p.Amount
		rec.AmountInWords = words
		rec.SetAt = at
	}
	if p.Modality != "" {
		if !p.Modality.Valid() {
			return fmt.Errorf("%w: unknown modality %q", ErrInvalidTransition, p.Modality)
		}
		rec.Modality = p.Modality
	}
	if p.BasisLink != "" {
		rec.BasisLink = p.BasisLink
	}
	next.Recommendation = &rec
	return nil
}

func guardForward(next Case, _ Payload, gate documents.GateResult) error {
	if !gate.CanForward {
		return fmt.Errorf("%w: required documents missing or unverified: %s", ErrInvalidTransition, strings.Join(gate.Blocking(), ", "))
	}
	return requireAmount(next)
}

func requireAmount(c Case) error {
	amount, ok := c.Amount()
	if !ok {
		return fmt.Errorf("%w: no recommendation has been set", ErrInvalidTransition)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: recommended amount must be positive", ErrInvalidTransition)
	}
	return nil
}

func guardApprove(next Case, p Payload, _ documents.GateResult) error {
	if err := requireAmount(next); err != nil {
		return err
	}
	if !p.FundSource.Valid() {
		return fmt.Errorf("%w: approval requires a fund source (MAIN or CA)", ErrInvalidTransition)
	}
	return nil
}

func guardComplete(next Case, _ Payload, _ documents.GateResult) error {
	if !next.Flags.FinanceCleared {
		return fmt.Errorf("%w: finance has not cleared the case", ErrInvalidTransition)
	}
	if !next.FundSource.Valid() {
		return fmt.Errorf("%w: case has no recorded fund source", ErrInvalidTransition)
	}
	return requireAmount(next)
}

func precommit(next *Case, p Payload, at time.Time) *ledger.Entry {
	next.FundSource = p.FundSource
	next.Finance.FundSource = p.FundSource
	stamp := at
	next.Finance.PrecommitAt = &stamp
	return caseEntry(*next, ledger.KindPrecommit, at, "Pre-commit for "+next.ControlNo)
}

func disburse(next *Case, _ Payload, at time.Time) *ledger.Entry {
	return caseEntry(*next, ledger.KindDisburse, at, "Disbursement for "+next.ControlNo)
}

func caseEntry(c Case, kind ledger.EntryKind, at time.Time, note string) *ledger.Entry {
	id := c.ID
	return &ledger.Entry{
		At:        at,
		CaseID:    &id,
		Source:    c.FundSource,
		Kind:      kind,
		Amount:    c.Recommendation.Amount,
		Note:      note,
		ControlNo: c.ControlNo,
	}
}
