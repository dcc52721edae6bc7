package e2e

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"

	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/documents"
	jobmetrics "github.com/pswdo-albay/aics/internal/jobs"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/shared"
	"github.com/pswdo-albay/aics/jobs"
	_ "github.com/pswdo-albay/aics/testing"
)

type capturingQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *capturingQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

type memoryAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) actions(action string) []shared.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []shared.AuditLog
	for _, l := range a.logs {
		if l.Action == action {
			out = append(out, l)
		}
	}
	return out
}

// A cash advance large enough that its half-ceiling top-up exceeds the
// post-audit limit.
func largeAdvance() ledger.Config {
	cfg := ledger.DefaultConfig()
	cfg.CACeiling = 3_000_000
	cfg.CAThresholdPercent = decimal.RequireFromString("0.20")
	return cfg
}

func TestApprovalReplenishmentRaisesPostAuditReview(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := &capturingQueue{}
	audit := &memoryAudit{}

	engine, err := ledger.NewEngine(largeAdvance(),
		ledger.WithLogger(logger),
		ledger.WithObserver(jobs.NewPostAuditNotifier(queue, logger)),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Load([]ledger.Entry{
		{Source: ledger.SourceCA, Kind: ledger.KindPrecommit, Amount: 2_400_000, ControlNo: "AICS-2024-00077"},
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	svc := casework.NewService(casework.NewMemoryStore(), documents.NewRegistry(nil), engine,
		casework.WithLogger(logger),
		casework.WithAuditor(audit),
	)

	c, err := svc.CreateCase(ctx, casework.CreateCaseInput{BeneficiaryID: "BEN-E2E-1", AssistanceType: documents.AssistanceMedical})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	if _, err := svc.Transition(ctx, c.ID, casework.StatusScreening, casework.RoleSystem, casework.Payload{}); err != nil {
		t.Fatalf("start screening: %v", err)
	}
	for _, entry := range documents.Checklist(documents.AssistanceMedical) {
		if _, err := svc.SubmitDocument(ctx, c.ID, documents.SubmitInput{DocType: entry.Name, IsCTC: true}); err != nil {
			t.Fatalf("submit %s: %v", entry.Name, err)
		}
		if _, err := svc.VerifyDocument(ctx, c.ID, entry.Name, "officer-e2e", casework.RoleCaseOfficer); err != nil {
			t.Fatalf("verify %s: %v", entry.Name, err)
		}
	}
	if _, err := svc.Recommend(ctx, c.ID, casework.RoleCaseOfficer, casework.RecommendInput{Amount: 10_000}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if _, err := svc.Transition(ctx, c.ID, casework.StatusForApproval, casework.RoleCaseOfficer, casework.Payload{}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if _, err := svc.Transition(ctx, c.ID, casework.StatusApproved, casework.RoleHead, casework.Payload{FundSource: ledger.SourceCA}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 post-audit task, got %d", len(queue.tasks))
	}
	task := queue.tasks[0]
	if task.Type() != jobs.TaskLedgerPostAudit {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	replenishments := engine.List(ledger.Filter{Source: ledger.SourceCA, Kind: ledger.KindReplenish})
	if len(replenishments) != 1 {
		t.Fatalf("expected 1 replenishment, got %d", len(replenishments))
	}
	if replenishments[0].Amount != 1_500_000 || !replenishments[0].RequiresPostAudit {
		t.Fatalf("unexpected replenishment %+v", replenishments[0])
	}

	reg := prometheus.NewRegistry()
	job := jobs.NewPostAuditJob(audit, logger, jobmetrics.NewMetrics(reg))
	if err := job.Handle(ctx, task); err != nil {
		t.Fatalf("job handle: %v", err)
	}

	raised := audit.actions("ledger.post_audit_raised")
	if len(raised) != 1 {
		t.Fatalf("expected 1 post-audit audit record, got %d", len(raised))
	}
	if raised[0].EntityID != replenishments[0].ID.String() {
		t.Fatalf("audit record points at %s, want %s", raised[0].EntityID, replenishments[0].ID)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if !assertCounter(t, families, "aics_jobs_total", map[string]string{"job": jobs.TaskLedgerPostAudit, "status": "success"}, 1) {
		t.Fatalf("expected aics_jobs_total increment for post-audit")
	}
	if !assertCounter(t, families, "aics_post_audit_reviews_total", map[string]string{"source": string(ledger.SourceCA)}, 1) {
		t.Fatalf("expected aics_post_audit_reviews_total increment for CA")
	}
	if !metricExists(families, "aics_job_duration_seconds") {
		t.Fatalf("expected aics_job_duration_seconds to be recorded")
	}

	if report := svc.CheckIntegrity(ctx); !report.OK {
		t.Fatalf("integrity violations after approval: %+v", report.Violations)
	}
}

func TestSmallReplenishmentIsNotQueued(t *testing.T) {
	ctx := context.Background()
	queue := &capturingQueue{}
	engine, err := ledger.NewEngine(ledger.DefaultConfig(),
		ledger.WithObserver(jobs.NewPostAuditNotifier(queue, slog.New(slog.NewTextHandler(io.Discard, nil)))),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	written, err := engine.Append(ctx, ledger.Entry{Source: ledger.SourceCA, Kind: ledger.KindPrecommit, Amount: 450_000, ControlNo: "AICS-2025-00001"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(written) != 2 || written[1].Kind != ledger.KindReplenish {
		t.Fatalf("expected a replenishment to fire, got %+v", written)
	}
	if written[1].RequiresPostAudit {
		t.Fatalf("replenishment of %d must not require post-audit", written[1].Amount)
	}
	if len(queue.tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(queue.tasks))
	}
}

func assertCounter(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string, expected float64) bool {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				if metric.GetCounter() == nil {
					return false
				}
				if metric.GetCounter().GetValue() == expected {
					return true
				}
			}
		}
	}
	return false
}

func metricExists(families []*dto.MetricFamily, name string) bool {
	for _, fam := range families {
		if fam.GetName() == name {
			return true
		}
	}
	return false
}

func matchLabels(pairs []*dto.LabelPair, expected map[string]string) bool {
	if len(expected) == 0 {
		return true
	}
	seen := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range expected {
		if seen[k] != v {
			return false
		}
	}
	return true
}
