package documents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type record struct {
	mu  sync.Mutex
	doc Document
}

// Registry is the in-memory owner of submitted documents. Verification writes
// lock only the document being verified.
type Registry struct {
	mu     sync.RWMutex
	byCase map[uuid.UUID][]*record
	now    func() time.Time
}

// NewRegistry constructs an empty registry. A nil clock defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{byCase: make(map[uuid.UUID][]*record), now: now}
}

// Submit records a new unverified document for caseID.
func (r *Registry) Submit(ctx context.Context, caseID uuid.UUID, in SubmitInput) (Document, error) {
	docType := strings.TrimSpace(in.DocType)
	if docType == "" {
		return Document{}, fmt.Errorf("%w: doc type required", ErrValidation)
	}
	if caseID == uuid.Nil {
		return Document{}, fmt.Errorf("%w: case id required", ErrValidation)
	}
	doc := Document{
		ID:           uuid.New(),
		CaseID:       caseID,
		DocType:      docType,
		Filename:     in.Filename,
		IssuedDate:   in.IssuedDate,
		IsCTC:        in.IsCTC,
		Confidential: in.Confidential,
		Notes:        in.Notes,
		SubmittedAt:  r.now().UTC(),
	}
	r.mu.Lock()
	r.byCase[caseID] = append(r.byCase[caseID], &record{doc: doc})
	r.mu.Unlock()
	return doc, nil
}

// Verify marks the latest submitted document of docType as verified by
// verifierID. Verifying again overwrites the verifier and timestamp.
func (r *Registry) Verify(ctx context.Context, caseID uuid.UUID, docType, verifierID string, at time.Time) (Document, error) {
	if strings.TrimSpace(verifierID) == "" {
		return Document{}, fmt.Errorf("%w: verifier required", ErrValidation)
	}
	rec := r.latest(caseID, strings.TrimSpace(docType))
	if rec == nil {
		return Document{}, fmt.Errorf("%w: %q on case %s", ErrDocumentNotFound, docType, caseID)
	}
	if at.IsZero() {
		at = r.now()
	}
	at = at.UTC()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.doc.VerifiedBy = verifierID
	rec.doc.VerifiedAt = &at
	return rec.doc.clone(), nil
}

// ForCase returns every document submitted for caseID in submission order.
func (r *Registry) ForCase(caseID uuid.UUID) []Document {
	r.mu.RLock()
	records := append([]*record(nil), r.byCase[caseID]...)
	r.mu.RUnlock()

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		docs = append(docs, rec.doc.clone())
		rec.mu.Unlock()
	}
	return docs
}

func (r *Registry) latest(caseID uuid.UUID, docType string) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.byCase[caseID]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].doc.DocType == docType {
			return records[i]
		}
	}
	return nil
}

func (d Document) clone() Document {
	if d.VerifiedAt != nil {
		at := *d.VerifiedAt
		d.VerifiedAt = &at
	}
	return d
}
