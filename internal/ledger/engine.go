package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Observer is notified after entries have been appended and the ledger lock
// released. Callers using Write decide when Notify runs.
type Observer interface {
	LedgerAppended(ctx context.Context, entries []Entry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, entries []Entry)

// LedgerAppended implements Observer.
func (f ObserverFunc) LedgerAppended(ctx context.Context, entries []Entry) {
	f(ctx, entries)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithObserver registers an append observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine is the append-only fund ledger. Appends and the replenishment check
// run in one exclusive section so readers never see a torn state.
type Engine struct {
	mu        sync.RWMutex
	cfg       Config
	policy    Policy
	entries   []Entry
	ids       map[uuid.UUID]struct{}
	now       func() time.Time
	observers []Observer
	logger    *slog.Logger
}

// NewEngine validates cfg and returns an empty ledger.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		policy: NewPolicy(cfg),
		ids:    make(map[uuid.UUID]struct{}),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the budget configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Append writes entry and notifies observers. Callers that append while
// holding their own locks use Write and Notify separately.
func (e *Engine) Append(ctx context.Context, entry Entry) ([]Entry, error) {
	written, err := e.Write(ctx, entry)
	if err != nil {
		return nil, err
	}
	e.Notify(ctx, written)
	return written, nil
}

// Write validates and appends entry, then evaluates the cash advance policy
// when the entry touches the cash advance. It returns every entry written,
// the caller's first and a synthetic replenishment second when one fired.
// Observers are not called.
func (e *Engine) Write(ctx context.Context, entry Entry) ([]Entry, error) {
	if err := Validate(entry); err != nil {
		return nil, err
	}

	e.mu.Lock()
	entry = e.stamp(entry)
	if _, dup := e.ids[entry.ID]; dup {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: duplicate entry id %s", ErrValidation, entry.ID)
	}
	e.record(entry)
	written := []Entry{entry}

	if entry.Source == SourceCA {
		precommitted := sumKind(e.entries, SourceCA, KindPrecommit)
		if e.policy.ShouldReplenish(precommitted) {
			amount := e.policy.ReplenishAmount()
			replenish := e.stamp(Entry{
				Source:            SourceCA,
				Kind:              KindReplenish,
				Amount:            amount,
				Note:              ReplenishNote,
				ControlNo:         "N/A",
				RequiresPostAudit: RequiresPostAudit(amount),
			})
			e.record(replenish)
			written = append(written, replenish)
		}
	}
	e.mu.Unlock()

	for _, w := range written {
		e.logger.InfoContext(ctx, "ledger entry appended",
			slog.String("id", w.ID.String()),
			slog.String("source", string(w.Source)),
			slog.String("kind", string(w.Kind)),
			slog.Int64("amount", w.Amount),
			slog.Bool("post_audit", w.RequiresPostAudit),
		)
	}
	return written, nil
}

// Notify hands entries returned by Write to the registered observers.
func (e *Engine) Notify(ctx context.Context, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	for _, o := range e.observers {
		o.LedgerAppended(ctx, entries)
	}
}

// Load seeds historical entries without evaluating the policy. Either every
// entry is loaded or none is.
func (e *Engine) Load(entries []Entry) error {
	for i, entry := range entries {
		if err := Validate(entry); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stamped := make([]Entry, len(entries))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for i, entry := range entries {
		entry = e.stamp(entry)
		_, existing := e.ids[entry.ID]
		_, repeated := seen[entry.ID]
		if existing || repeated {
			return fmt.Errorf("entry %d: %w: duplicate entry id %s", i, ErrValidation, entry.ID)
		}
		seen[entry.ID] = struct{}{}
		stamped[i] = entry
	}
	for _, entry := range stamped {
		e.record(entry)
	}
	return nil
}

// List returns the entries matching f in append order.
func (e *Engine) List(f Filter) []Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Entry, 0, len(e.entries))
	for _, entry := range e.entries {
		if f.Match(entry) {
			out = append(out, entry)
		}
	}
	return out
}

// PrecommitFor returns the precommit entries written for caseID.
func (e *Engine) PrecommitFor(caseID uuid.UUID) []Entry {
	return e.List(Filter{Kind: KindPrecommit, CaseID: &caseID})
}

// DisbursementsFor returns the disburse entries written for caseID.
func (e *Engine) DisbursementsFor(caseID uuid.UUID) []Entry {
	return e.List(Filter{Kind: KindDisburse, CaseID: &caseID})
}

// Snapshot folds the ledger for source.
func (e *Engine) Snapshot(source FundSource) (Snapshot, error) {
	if !source.Valid() {
		return Snapshot{}, fmt.Errorf("%w: unknown fund source %q", ErrValidation, source)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Fold(e.cfg, e.entries, source), nil
}

// Len returns the number of entries.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// record appends a stamped entry. Callers hold e.mu.
func (e *Engine) record(entry Entry) {
	e.entries = append(e.entries, entry)
	e.ids[entry.ID] = struct{}{}
}

// stamp fills in id, timestamp and post-audit metadata. Callers hold e.mu.
func (e *Engine) stamp(entry Entry) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.At.IsZero() {
		entry.At = e.now().UTC()
	}
	if entry.Kind == KindReplenish && RequiresPostAudit(entry.Amount) {
		entry.RequiresPostAudit = true
	}
	if entry.CaseID != nil {
		id := *entry.CaseID
		entry.CaseID = &id
	}
	return entry
}
