package documents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndVerify(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	reg := NewRegistry(func() time.Time { return now })
	ctx := context.Background()
	caseID := uuid.New()

	doc, err := reg.Submit(ctx, caseID, SubmitInput{DocType: "Valid ID", Filename: "Valid_ID.pdf", IsCTC: true})
	require.NoError(t, err)
	require.False(t, doc.Verified())
	require.Equal(t, now, doc.SubmittedAt)

	verified, err := reg.Verify(ctx, caseID, "Valid ID", "officer-7", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, verified.Verified())
	require.Equal(t, "officer-7", verified.VerifiedBy)
	require.Equal(t, doc.ID, verified.ID)

	again, err := reg.Verify(ctx, caseID, "Valid ID", "officer-9", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "officer-9", again.VerifiedBy)
	require.Equal(t, now.Add(2*time.Hour), *again.VerifiedAt)
	require.Len(t, reg.ForCase(caseID), 1)
}

func TestVerifyMissingDocument(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Verify(context.Background(), uuid.New(), "Death Certificate", "officer-1", time.Time{})
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestVerifyRequiresVerifier(t *testing.T) {
	reg := NewRegistry(nil)
	caseID := uuid.New()
	_, err := reg.Submit(context.Background(), caseID, SubmitInput{DocType: "Valid ID"})
	require.NoError(t, err)
	_, err = reg.Verify(context.Background(), caseID, "Valid ID", " ", time.Time{})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitRejectsBlankType(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Submit(context.Background(), uuid.New(), SubmitInput{DocType: "  "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestReturnedDocumentsAreCopies(t *testing.T) {
	reg := NewRegistry(nil)
	caseID := uuid.New()
	_, err := reg.Submit(context.Background(), caseID, SubmitInput{DocType: "Valid ID"})
	require.NoError(t, err)
	doc, err := reg.Verify(context.Background(), caseID, "Valid ID", "officer-1", time.Now())
	require.NoError(t, err)

	*doc.VerifiedAt = time.Time{}
	stored := reg.ForCase(caseID)
	require.Len(t, stored, 1)
	require.False(t, stored[0].VerifiedAt.IsZero())
}

func TestConcurrentVerificationsOnDifferentDocuments(t *testing.T) {
	reg := NewRegistry(nil)
	caseID := uuid.New()
	for _, entry := range Checklist(AssistanceMedical) {
		_, err := reg.Submit(context.Background(), caseID, SubmitInput{DocType: entry.Name})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, entry := range Checklist(AssistanceMedical) {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := reg.Verify(context.Background(), caseID, name, "officer-1", time.Now())
			assert.NoError(t, err)
		}(entry.Name)
	}
	wg.Wait()

	require.True(t, Evaluate(AssistanceMedical, reg.ForCase(caseID)).CanForward)
}
