package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/pswdo-albay/aics/internal/jobs"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/shared"
)

func flaggedEntry() ledger.Entry {
	return ledger.Entry{
		ID:                uuid.New(),
		At:                time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Source:            ledger.SourceCA,
		Kind:              ledger.KindReplenish,
		Amount:            2_000_000,
		Note:              ledger.ReplenishNote,
		ControlNo:         "N/A",
		RequiresPostAudit: true,
	}
}

func TestNewPostAuditTaskRequiresFlag(t *testing.T) {
	entry := flaggedEntry()
	entry.RequiresPostAudit = false
	_, err := NewPostAuditTask(entry)
	require.Error(t, err)

	task, err := NewPostAuditTask(flaggedEntry())
	require.NoError(t, err)
	require.Equal(t, TaskLedgerPostAudit, task.Type())

	var payload PostAuditPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.EqualValues(t, 2_000_000, payload.Amount)
	require.Equal(t, ledger.SourceCA, payload.Source)
}

type auditSpy struct {
	mu   sync.Mutex
	logs []shared.AuditLog
	err  error
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func TestPostAuditJobRecordsReview(t *testing.T) {
	audit := &auditSpy{}
	job := NewPostAuditJob(audit, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	entry := flaggedEntry()
	task, err := NewPostAuditTask(entry)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, audit.logs, 1)
	require.Equal(t, "ledger.post_audit_raised", audit.logs[0].Action)
	require.Equal(t, entry.ID.String(), audit.logs[0].EntityID)
}

func TestPostAuditJobRejectsBadPayload(t *testing.T) {
	job := NewPostAuditJob(nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerPostAudit, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskLedgerPostAudit, []byte(`{"amount":0}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPostAuditJobSurfacesAuditFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewPostAuditJob(&auditSpy{err: boom}, nil, nil)
	task, err := NewPostAuditTask(flaggedEntry())
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

type enqueueSpy struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (e *enqueueSpy) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestPostAuditNotifierEnqueuesFlaggedEntriesOnly(t *testing.T) {
	queue := &enqueueSpy{}
	notifier := NewPostAuditNotifier(queue, nil)

	plain := flaggedEntry()
	plain.RequiresPostAudit = false
	notifier.LedgerAppended(context.Background(), []ledger.Entry{plain, flaggedEntry()})

	require.Len(t, queue.tasks, 1)
	require.Equal(t, TaskLedgerPostAudit, queue.tasks[0].Type())
}

func TestPostAuditNotifierIgnoresEnqueueErrors(t *testing.T) {
	queue := &enqueueSpy{err: errors.New("redis down")}
	notifier := NewPostAuditNotifier(queue, nil)
	require.NotPanics(t, func() {
		notifier.LedgerAppended(context.Background(), []ledger.Entry{flaggedEntry()})
	})
}

func TestNotifierWiredAsLedgerObserver(t *testing.T) {
	queue := &enqueueSpy{}
	cfg := ledger.DefaultConfig()
	cfg.CACeiling = 4_000_000
	engine, err := ledger.NewEngine(cfg, ledger.WithObserver(NewPostAuditNotifier(queue, nil)))
	require.NoError(t, err)

	ref := uuid.New()
	_, err = engine.Append(context.Background(), ledger.Entry{Source: ledger.SourceCA, Kind: ledger.KindPrecommit, Amount: 3_500_000, CaseID: &ref})
	require.NoError(t, err)
	require.Len(t, queue.tasks, 1)
}

type inspectorStub struct {
	info *asynq.QueueInfo
	err  error
}

func (s inspectorStub) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		pending   int
	}{
		{name: "no inspector", status: http.StatusOK},
		{name: "queue info", inspector: inspectorStub{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, status: http.StatusOK, pending: 3},
		{name: "queue missing", inspector: inspectorStub{err: asynq.ErrQueueNotFound}, status: http.StatusOK},
		{name: "redis down", inspector: inspectorStub{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(r)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				var body queueHealth
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				require.Equal(t, tc.pending, body.Pending)
			}
		})
	}
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)
}
