package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pswdo-albay/aics/internal/ledger"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PostAuditNotifier enqueues a post-audit task for every flagged ledger entry.
// It is registered as a ledger observer; enqueue failures are logged and do
// not affect the ledger.
type PostAuditNotifier struct {
	queue  Enqueuer
	logger *slog.Logger
}

// NewPostAuditNotifier constructs the notifier.
func NewPostAuditNotifier(queue Enqueuer, logger *slog.Logger) *PostAuditNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostAuditNotifier{queue: queue, logger: logger}
}

// LedgerAppended implements ledger.Observer.
func (n *PostAuditNotifier) LedgerAppended(ctx context.Context, entries []ledger.Entry) {
	if n == nil || n.queue == nil {
		return
	}
	for _, e := range entries {
		if !e.RequiresPostAudit {
			continue
		}
		task, err := NewPostAuditTask(e)
		if err != nil {
			n.logger.Error("build post-audit task", slog.Any("error", err))
			continue
		}
		// The request context may end before the enqueue; the ledger write is
		// already durable in memory.
		_, err = n.queue.EnqueueContext(context.WithoutCancel(ctx), task, asynq.Queue(QueueDefault))
		if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			n.logger.Error("enqueue post-audit task", slog.String("entry_id", e.ID.String()), slog.Any("error", err))
			continue
		}
		n.logger.Info("post-audit task enqueued", slog.String("entry_id", e.ID.String()), slog.Int64("amount", e.Amount))
	}
}
