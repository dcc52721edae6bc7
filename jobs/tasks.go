package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/pswdo-albay/aics/internal/jobs"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerPostAudit raises a post-audit review for a flagged ledger entry.
	TaskLedgerPostAudit = "ledger:post_audit"
)

// PostAuditPayload describes the ledger entry under review.
type PostAuditPayload struct {
	EntryID uuid.UUID         `json:"entry_id"`
	Source  ledger.FundSource `json:"source"`
	Kind    ledger.EntryKind  `json:"kind"`
	Amount  int64             `json:"amount"`
	Note    string            `json:"note"`
	At      time.Time         `json:"at"`
}

// NewPostAuditTask constructs an Asynq task for entry. The entry id doubles as
// the task id so a retried enqueue never raises a second review.
func NewPostAuditTask(entry ledger.Entry) (*asynq.Task, error) {
	if !entry.RequiresPostAudit {
		return nil, fmt.Errorf("post audit: entry %s is not flagged", entry.ID)
	}
	data, err := json.Marshal(PostAuditPayload{
		EntryID: entry.ID,
		Source:  entry.Source,
		Kind:    entry.Kind,
		Amount:  entry.Amount,
		Note:    entry.Note,
		At:      entry.At,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerPostAudit, data, asynq.TaskID(entry.ID.String()), asynq.MaxRetry(5)), nil
}

// Auditor persists audit records.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PostAuditJob records post-audit reviews.
type PostAuditJob struct {
	Audit   Auditor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewPostAuditJob initialises the post-audit handler.
func NewPostAuditJob(audit Auditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *PostAuditJob {
	return &PostAuditJob{Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerPostAudit tasks.
func (j *PostAuditJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("post audit: handler not configured")
	}
	var payload PostAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("post audit: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.EntryID == uuid.Nil || payload.Amount <= 0 {
		return fmt.Errorf("post audit: incomplete payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskLedgerPostAudit)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(
		slog.String("entry_id", payload.EntryID.String()),
		slog.String("source", string(payload.Source)),
		slog.Int64("amount", payload.Amount),
	)
	logger.Warn("post-audit review raised", slog.String("amount_display", shared.FormatPeso(payload.Amount)))

	if j.Audit != nil {
		err = j.Audit.Record(ctx, shared.AuditLog{
			Actor:    "System",
			Action:   "ledger.post_audit_raised",
			Entity:   "ledger_entry",
			EntityID: payload.EntryID.String(),
			Meta: map[string]any{
				"source": payload.Source,
				"kind":   payload.Kind,
				"amount": payload.Amount,
				"note":   payload.Note,
			},
			At: payload.At,
		})
		if err != nil {
			logger.Error("record post-audit review", slog.Any("error", err))
			return err
		}
	}
	j.Metrics.AddReviews(string(payload.Source), 1)
	return nil
}

func (j *PostAuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
