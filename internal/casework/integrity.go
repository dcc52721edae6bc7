package casework

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pswdo-albay/aics/internal/ledger"
)

// Violation is one inconsistency found by CheckIntegrity.
type Violation struct {
	CaseID    uuid.UUID `json:"case_id"`
	ControlNo string    `json:"control_no"`
	Problem   string    `json:"problem"`
}

// IntegrityReport summarises a consistency sweep over cases and the ledger.
type IntegrityReport struct {
	CheckedCases  int         `json:"checked_cases"`
	LedgerEntries int         `json:"ledger_entries"`
	Violations    []Violation `json:"violations"`
	OK            bool        `json:"ok"`
}

// CheckIntegrity verifies history ordering and that every approved or
// completed case has exactly the ledger entries its lifecycle implies.
// The ledger is listed before the cases, and each case is checked against
// its ledger entries under the case lock, so concurrent transitions never
// show up as violations.
func (s *Service) CheckIntegrity(ctx context.Context) IntegrityReport {
	entries := s.ledger.List(ledger.Filter{})
	cases := s.store.List()

	orphans := make(map[uuid.UUID]bool)
	for _, e := range entries {
		if e.CaseID != nil {
			orphans[*e.CaseID] = true
		}
	}

	report := IntegrityReport{CheckedCases: len(cases), LedgerEntries: len(entries), Violations: []Violation{}}
	for _, listed := range cases {
		delete(orphans, listed.ID)
		err := s.store.View(listed.ID, func(c Case) {
			for _, problem := range checkCase(c, s.ledger.PrecommitFor(c.ID), s.ledger.DisbursementsFor(c.ID)) {
				report.Violations = append(report.Violations, Violation{CaseID: c.ID, ControlNo: c.ControlNo, Problem: problem})
			}
		})
		if err != nil {
			report.Violations = append(report.Violations, Violation{CaseID: listed.ID, ControlNo: listed.ControlNo, Problem: err.Error()})
		}
	}
	for id := range orphans {
		report.Violations = append(report.Violations, Violation{CaseID: id, Problem: "ledger entries reference an unknown case"})
	}
	report.OK = len(report.Violations) == 0
	return report
}

func checkCase(c Case, precommits, disbursements []ledger.Entry) []string {
	var problems []string
	if len(c.History) == 0 {
		return []string{"history is empty"}
	}
	for i := 1; i < len(c.History); i++ {
		if !c.History[i].At.After(c.History[i-1].At) {
			problems = append(problems, fmt.Sprintf("history record %d is not after record %d", i, i-1))
		}
	}
	if last, _ := c.LastHistory(); last.Status != c.Status {
		problems = append(problems, fmt.Sprintf("last history status %s differs from case status %s", last.Status, c.Status))
	}
	if c.Status == StatusReturned && c.SubReason == "" {
		problems = append(problems, "returned case has no sub-reason")
	}

	wantPrecommit, wantDisburse := 0, 0
	switch c.Status {
	case StatusApproved:
		wantPrecommit = 1
	case StatusCompleted:
		wantPrecommit, wantDisburse = 1, 1
	}
	if len(precommits) != wantPrecommit {
		problems = append(problems, fmt.Sprintf("expected %d precommit entries, found %d", wantPrecommit, len(precommits)))
	}
	if len(disbursements) != wantDisburse {
		problems = append(problems, fmt.Sprintf("expected %d disburse entries, found %d", wantDisburse, len(disbursements)))
	}
	amount, _ := c.Amount()
	for _, e := range append(precommits, disbursements...) {
		if e.Amount != amount {
			problems = append(problems, fmt.Sprintf("%s entry amount %d differs from recommendation %d", e.Kind, e.Amount, amount))
		}
		if e.Source != c.FundSource {
			problems = append(problems, fmt.Sprintf("%s entry source %s differs from case fund source %s", e.Kind, e.Source, c.FundSource))
		}
	}
	return problems
}
