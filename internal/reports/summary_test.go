package reports

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
)

var day0 = time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)

func history(steps ...any) []casework.HistoryRecord {
	out := make([]casework.HistoryRecord, 0, len(steps)/2)
	for i := 0; i+1 < len(steps); i += 2 {
		out = append(out, casework.HistoryRecord{Status: steps[i].(casework.Status), At: day0.Add(steps[i+1].(time.Duration))})
	}
	return out
}

func fixtureCases() []casework.Case {
	d := 24 * time.Hour
	return []casework.Case{
		{Status: casework.StatusCompleted, AssistanceType: documents.AssistanceMedical, OfficerName: "Ana",
			History: history(casework.StatusNew, time.Duration(0), casework.StatusApproved, 2*d, casework.StatusCompleted, 3*d)},
		{Status: casework.StatusCompleted, AssistanceType: documents.AssistanceBurial, OfficerName: "Ben",
			History: history(casework.StatusNew, time.Duration(0), casework.StatusApproved, d, casework.StatusCompleted, 2*d)},
		{Status: casework.StatusReturned, SubReason: "Incomplete documents", OfficerName: "Ana"},
		{Status: casework.StatusReturned, SubReason: "Incomplete documents"},
		{Status: casework.StatusReturned, SubReason: "Expired ID"},
		{Status: casework.StatusApproved, AssistanceType: documents.AssistanceMedical, OfficerName: "Ana"},
		{Status: casework.StatusScreening, AssistanceType: documents.AssistanceFood},
	}
}

func fixtureEntries() []ledger.Entry {
	return []ledger.Entry{
		{Source: ledger.SourceMain, Kind: ledger.KindPrecommit, Amount: 5000},
		{Source: ledger.SourceMain, Kind: ledger.KindDisburse, Amount: 5000},
		{Source: ledger.SourceCA, Kind: ledger.KindPrecommit, Amount: 3000},
		{Source: ledger.SourceCA, Kind: ledger.KindDisburse, Amount: 3000},
	}
}

func TestBuildSummary(t *testing.T) {
	s := Build(fixtureCases(), fixtureEntries(), ledger.DefaultConfig(), day0)

	require.Equal(t, 7, s.TotalCases)
	require.Equal(t, 2, s.CompletedCases)
	require.True(t, decimal.RequireFromString("2.5").Equal(s.AvgProcessingDays), s.AvgProcessingDays.String())
	require.True(t, decimal.RequireFromString("1.5").Equal(s.AvgApprovalDays), s.AvgApprovalDays.String())
	require.Equal(t, []Count{{Name: "Incomplete documents", Count: 2}, {Name: "Expired ID", Count: 1}}, s.ReturnReasons)
	require.Equal(t, []Count{{Name: "Medical", Count: 2}, {Name: "Burial", Count: 1}}, s.ApprovalsByType)
	require.Equal(t, []Amount{{Name: "Main Budget", Value: 5000}, {Name: "Cash Advance", Value: 3000}}, s.DisbursedBySource)
	require.Equal(t, []OfficerOutcome{
		{Officer: "Ana", Returned: 1, Approved: 1, Completed: 1},
		{Officer: "Ben", Completed: 1},
	}, s.OutcomesByOfficer)
	require.EqualValues(t, 1_990_000, s.MainBudgetBalance)
	require.EqualValues(t, 494_000, s.CashAdvanceBalance)
}

func TestBuildSummaryWithoutCompletedCases(t *testing.T) {
	s := Build(nil, nil, ledger.DefaultConfig(), day0)
	require.True(t, s.AvgProcessingDays.IsZero())
	require.True(t, s.AvgApprovalDays.IsZero())
	require.Empty(t, s.ReturnReasons)
	require.Empty(t, s.DisbursedBySource)
}

type staticSource struct{}

func (staticSource) List(context.Context, casework.ListFilter) []casework.Case { return fixtureCases() }
func (staticSource) Ledger(ledger.Filter) []ledger.Entry                       { return fixtureEntries() }

func TestSummaryEndpoint(t *testing.T) {
	svc := NewService(staticSource{}, ledger.DefaultConfig(), func() time.Time { return day0 })
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got Summary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Equal(t, 7, got.TotalCases)
	require.True(t, decimal.RequireFromString("2.5").Equal(got.AvgProcessingDays))
}
