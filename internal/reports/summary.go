// Package reports derives management summaries from cases and the ledger.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
)

var msPerDay = decimal.NewFromInt(int64(24 * time.Hour / time.Millisecond))

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Amount is a labelled peso total.
type Amount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// OfficerOutcome tallies the current status of each officer's cases.
type OfficerOutcome struct {
	Officer   string `json:"officer"`
	Screening int    `json:"screening"`
	Returned  int    `json:"returned"`
	Approved  int    `json:"approved"`
	Completed int    `json:"completed"`
}

// Summary is the management report.
type Summary struct {
	GeneratedAt        time.Time        `json:"generated_at"`
	TotalCases         int              `json:"total_cases"`
	CompletedCases     int              `json:"completed_cases"`
	AvgProcessingDays  decimal.Decimal  `json:"avg_processing_days"`
	AvgApprovalDays    decimal.Decimal  `json:"avg_approval_days"`
	ReturnReasons      []Count          `json:"return_reasons"`
	ApprovalsByType    []Count          `json:"approvals_by_type"`
	DisbursedBySource  []Amount         `json:"disbursed_by_source"`
	OutcomesByOfficer  []OfficerOutcome `json:"outcomes_by_officer"`
	MainBudgetBalance  int64            `json:"main_budget_balance"`
	CashAdvanceBalance int64            `json:"cash_advance_balance"`
}

// Build computes the summary. Averages run over completed cases only and are
// rounded to one decimal place.
func Build(cases []casework.Case, entries []ledger.Entry, cfg ledger.Config, now time.Time) Summary {
	s := Summary{GeneratedAt: now, TotalCases: len(cases)}

	var procMs, approvalMs int64
	returns := map[string]int{}
	approvals := map[documents.AssistanceType]int{}
	officers := map[string]*OfficerOutcome{}
	for _, c := range cases {
		switch c.Status {
		case casework.StatusCompleted:
			s.CompletedCases++
			start, okStart := c.ReachedAt(casework.StatusNew)
			if done, ok := c.ReachedAt(casework.StatusCompleted); ok && okStart {
				procMs += done.Sub(start).Milliseconds()
			}
			if approved, ok := c.ReachedAt(casework.StatusApproved); ok && okStart {
				approvalMs += approved.Sub(start).Milliseconds()
			}
			approvals[c.AssistanceType]++
		case casework.StatusApproved:
			approvals[c.AssistanceType]++
		case casework.StatusReturned:
			if c.SubReason != "" {
				returns[c.SubReason]++
			}
		}
		if c.OfficerName != "" {
			tallyOfficer(officers, c)
		}
	}

	s.AvgProcessingDays = averageDays(procMs, s.CompletedCases)
	s.AvgApprovalDays = averageDays(approvalMs, s.CompletedCases)
	s.ReturnReasons = rankCounts(returns)
	s.ApprovalsByType = make([]Count, 0, len(approvals))
	for _, t := range documents.AssistanceTypes {
		if n := approvals[t]; n > 0 {
			s.ApprovalsByType = append(s.ApprovalsByType, Count{Name: string(t), Count: n})
		}
	}

	s.DisbursedBySource = make([]Amount, 0, 2)
	for _, source := range []ledger.FundSource{ledger.SourceMain, ledger.SourceCA} {
		var total int64
		for _, e := range entries {
			if e.Source == source && e.Kind == ledger.KindDisburse {
				total += e.Amount
			}
		}
		if total > 0 {
			s.DisbursedBySource = append(s.DisbursedBySource, Amount{Name: source.Label(), Value: total})
		}
	}
	s.MainBudgetBalance = ledger.Fold(cfg, entries, ledger.SourceMain).Balance
	s.CashAdvanceBalance = ledger.Fold(cfg, entries, ledger.SourceCA).Balance

	s.OutcomesByOfficer = make([]OfficerOutcome, 0, len(officers))
	for _, o := range officers {
		s.OutcomesByOfficer = append(s.OutcomesByOfficer, *o)
	}
	sort.Slice(s.OutcomesByOfficer, func(i, j int) bool {
		return s.OutcomesByOfficer[i].Officer < s.OutcomesByOfficer[j].Officer
	})
	return s
}

func averageDays(totalMs int64, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(totalMs).Div(msPerDay.Mul(decimal.NewFromInt(int64(n)))).Round(1)
}

// rankCounts orders by count descending, then name.
func rankCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func tallyOfficer(officers map[string]*OfficerOutcome, c casework.Case) {
	o, ok := officers[c.OfficerName]
	if !ok {
		o = &OfficerOutcome{Officer: c.OfficerName}
		officers[c.OfficerName] = o
	}
	switch c.Status {
	case casework.StatusScreening:
		o.Screening++
	case casework.StatusReturned:
		o.Returned++
	case casework.StatusApproved:
		o.Approved++
	case casework.StatusCompleted:
		o.Completed++
	}
}
