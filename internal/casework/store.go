package casework

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ControlNumbers issues AICS-<year>-<seq> control numbers. The sequence is
// shared across years and never reused.
type ControlNumbers struct {
	mu     sync.Mutex
	prefix string
	next   int
}

const maxControlSeq = 99999

// NewControlNumbers starts the sequence at start (minimum 1).
func NewControlNumbers(start int) *ControlNumbers {
	if start < 1 {
		start = 1
	}
	return &ControlNumbers{prefix: "AICS", next: start}
}

// Next returns the next control number for year.
func (n *ControlNumbers) Next(year int) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.next > maxControlSeq {
		return "", fmt.Errorf("%w: control number sequence exhausted", ErrValidation)
	}
	seq := n.next
	n.next++
	return fmt.Sprintf("%s-%d-%05d", n.prefix, year, seq), nil
}

type caseRecord struct {
	mu sync.Mutex
	c  Case
}

// MemoryStore keeps cases in memory. Each case has its own lock so writers to
// different cases never wait on each other.
type MemoryStore struct {
	mu        sync.RWMutex
	cases     map[uuid.UUID]*caseRecord
	byControl map[string]uuid.UUID
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:     make(map[uuid.UUID]*caseRecord),
		byControl: make(map[string]uuid.UUID),
	}
}

// Insert adds a new case.
func (s *MemoryStore) Insert(c Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return fmt.Errorf("%w: case %s already exists", ErrValidation, c.ID)
	}
	if _, ok := s.byControl[c.ControlNo]; ok {
		return fmt.Errorf("%w: control number %s already issued", ErrValidation, c.ControlNo)
	}
	s.cases[c.ID] = &caseRecord{c: c.clone()}
	s.byControl[c.ControlNo] = c.ID
	return nil
}

// Get returns a copy of the case.
func (s *MemoryStore) Get(id uuid.UUID) (Case, error) {
	rec, err := s.record(id)
	if err != nil {
		return Case{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.c.clone(), nil
}

// FindByControlNo looks a case up by its control number.
func (s *MemoryStore) FindByControlNo(controlNo string) (Case, error) {
	s.mu.RLock()
	id, ok := s.byControl[controlNo]
	s.mu.RUnlock()
	if !ok {
		return Case{}, fmt.Errorf("%w: control number %s", ErrNotFound, controlNo)
	}
	return s.Get(id)
}

// List returns copies of every case, newest first.
func (s *MemoryStore) List() []Case {
	s.mu.RLock()
	records := make([]*caseRecord, 0, len(s.cases))
	for _, rec := range s.cases {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	out := make([]Case, 0, len(records))
	for _, rec := range records {
		rec.mu.Lock()
		out = append(out, rec.c.clone())
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ControlNo > out[j].ControlNo
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// View calls fn with a copy of the case while holding its lock, so fn sees
// the case as no transition is midway through it.
func (s *MemoryStore) View(id uuid.UUID, fn func(Case)) error {
	rec, err := s.record(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	fn(rec.c.clone())
	return nil
}

// WithCase runs fn against a working copy of the case while holding its lock.
// The copy replaces the stored case only when fn returns nil.
func (s *MemoryStore) WithCase(ctx context.Context, id uuid.UUID, fn func(*Case) error) (Case, error) {
	if err := ctx.Err(); err != nil {
		return Case{}, err
	}
	rec, err := s.record(id)
	if err != nil {
		return Case{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	work := rec.c.clone()
	if err := fn(&work); err != nil {
		return Case{}, err
	}
	rec.c = work
	return work.clone(), nil
}

func (s *MemoryStore) record(id uuid.UUID) (*caseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}
