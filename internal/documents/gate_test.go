package documents

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func verifiedDoc(caseID uuid.UUID, docType string) Document {
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	return Document{ID: uuid.New(), CaseID: caseID, DocType: docType, VerifiedBy: "officer-1", VerifiedAt: &at}
}

func TestChecklistPartitions(t *testing.T) {
	cases := map[AssistanceType][2]int{
		AssistanceMedical:   {4, 2},
		AssistanceBurial:    {3, 2},
		AssistanceEducation: {3, 1},
		AssistanceTransport: {2, 0},
		AssistanceFood:      {2, 0},
		AssistanceFinancial: {2, 0},
	}
	for at, want := range cases {
		result := Evaluate(at, nil)
		require.Len(t, result.Required, want[0], "required for %s", at)
		require.Len(t, result.Optional, want[1], "optional for %s", at)
		require.False(t, result.CanForward)
		require.Len(t, result.Missing, want[0])
	}
}

func TestEvaluateRequiresVerifiedDocuments(t *testing.T) {
	caseID := uuid.New()
	docs := []Document{
		verifiedDoc(caseID, "Valid ID"),
		{ID: uuid.New(), CaseID: caseID, DocType: "Travel Itinerary/Ticket"},
	}
	result := Evaluate(AssistanceTransport, docs)
	require.False(t, result.CanForward)
	require.Empty(t, result.Missing)
	require.Equal(t, []string{"Travel Itinerary/Ticket"}, result.Unverified)
	require.Equal(t, []string{"Travel Itinerary/Ticket"}, result.Blocking())

	docs[1] = verifiedDoc(caseID, "Travel Itinerary/Ticket")
	result = Evaluate(AssistanceTransport, docs)
	require.True(t, result.CanForward)
	require.Empty(t, result.Blocking())
}

func TestEvaluateIgnoresOptionalEntries(t *testing.T) {
	caseID := uuid.New()
	docs := []Document{
		verifiedDoc(caseID, "Valid ID"),
		verifiedDoc(caseID, "COR/Assessment"),
		verifiedDoc(caseID, "Statement of Account/Fees"),
	}
	result := Evaluate(AssistanceEducation, docs)
	require.True(t, result.CanForward)
	require.False(t, result.Optional[0].Submitted)
}

func TestEvaluateUnknownTypeNeverForwards(t *testing.T) {
	result := Evaluate("Housing", nil)
	require.False(t, result.CanForward)
}

func TestParseAssistanceType(t *testing.T) {
	at, err := ParseAssistanceType("Burial")
	require.NoError(t, err)
	require.Equal(t, AssistanceBurial, at)

	_, err = ParseAssistanceType("Housing")
	require.ErrorIs(t, err, ErrValidation)
}
