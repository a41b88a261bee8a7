package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/etl"
)

// fakeSource serves canned rows and can fail selected data types.
type fakeSource struct {
	failTypes map[string]error
	calls     []string
}

func (f *fakeSource) ExportData(_ context.Context, dataType string, _, _ time.Time) (map[string][]map[string]any, error) {
	f.calls = append(f.calls, dataType)
	if err, ok := f.failTypes[dataType]; ok {
		return nil, err
	}
	return map[string][]map[string]any{
		dataType: {{"id": "row-1"}},
	}, nil
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	exec := etl.NewExecutor(etl.NewPolicyStore(), etl.NewLedger(), zerolog.Nop(),
		etl.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	exp := NewExporter(t.TempDir(), "", zerolog.Nop())
	trig := NewPipelineTrigger("", zerolog.Nop())
	return NewOrchestrator(exp, trig, exec, zerolog.Nop())
}

func TestRunFullETL_AllTypes(t *testing.T) {
	o := newTestOrchestrator(t)
	src := &fakeSource{}

	res := o.RunFullETL(context.Background(), src, time.Now().AddDate(0, -1, 0), time.Now())

	if res.Status != "completed" {
		t.Errorf("status = %q, want completed", res.Status)
	}
	for _, dt := range []string{"appointments", "resources", "doctors"} {
		if _, ok := res.DataExports[dt]; !ok {
			t.Errorf("missing export for %s", dt)
		}
		run, ok := res.PipelineRuns[dt].(PipelineRun)
		if !ok {
			t.Fatalf("pipeline run for %s has type %T", dt, res.PipelineRuns[dt])
		}
		if run.Status != "simulated" {
			t.Errorf("%s pipeline status = %q", dt, run.Status)
		}
	}
	if res.EndTime.Before(res.StartTime) {
		t.Error("end time before start time")
	}
}

func TestRunFullETL_PartialFailure(t *testing.T) {
	o := newTestOrchestrator(t)
	src := &fakeSource{failTypes: map[string]error{
		"resources": errors.New("database connection refused"),
	}}

	res := o.RunFullETL(context.Background(), src, time.Now().AddDate(0, -1, 0), time.Now())

	// The run completes; the failing type is recorded, the rest succeed.
	if res.Status != "completed" {
		t.Errorf("status = %q, want completed", res.Status)
	}
	failure, ok := res.PipelineRuns["resources"].(map[string]any)
	if !ok {
		t.Fatalf("resources entry has type %T", res.PipelineRuns["resources"])
	}
	if failure["status"] != "failed" {
		t.Errorf("resources status = %v", failure["status"])
	}
	if _, ok := res.DataExports["resources"]; ok {
		t.Error("failed type should have no export entry")
	}
	if _, ok := res.DataExports["appointments"]; !ok {
		t.Error("appointments export missing despite resources failure")
	}
	if _, ok := res.DataExports["doctors"]; !ok {
		t.Error("doctors export missing despite resources failure")
	}
}

func TestRunFullETL_FailuresAreRetried(t *testing.T) {
	o := newTestOrchestrator(t)
	src := &fakeSource{failTypes: map[string]error{
		"appointments": errors.New("request timed out"),
	}}

	o.RunFullETL(context.Background(), src, time.Now().AddDate(0, -1, 0), time.Now())

	// network_timeout policy allows 3 attempts.
	attempts := 0
	for _, call := range src.calls {
		if call == "appointments" {
			attempts++
		}
	}
	if attempts != 3 {
		t.Errorf("appointments attempted %d times, want 3", attempts)
	}
}

func TestRunIncrementalETL(t *testing.T) {
	o := newTestOrchestrator(t)
	src := &fakeSource{}

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	res := o.RunIncrementalETL(context.Background(), src, "appointments", start, end)

	if res.Status != "completed" {
		t.Fatalf("status = %q, want completed", res.Status)
	}
	if res.DataType != "appointments" {
		t.Errorf("data_type = %q", res.DataType)
	}
	run, ok := res.PipelineRuns["appointments"].(PipelineRun)
	if !ok {
		t.Fatalf("pipeline run has type %T", res.PipelineRuns["appointments"])
	}
	if run.Pipeline != "hospital_appointments_incremental_etl_pipeline" {
		t.Errorf("pipeline = %q", run.Pipeline)
	}
	if run.Parameters["mode"] != "incremental" {
		t.Errorf("parameters = %v", run.Parameters)
	}
	if run.Parameters["start_date"] != "2025-02-01" {
		t.Errorf("start_date = %v", run.Parameters["start_date"])
	}
}

func TestRunIncrementalETL_Failure(t *testing.T) {
	o := newTestOrchestrator(t)
	src := &fakeSource{failTypes: map[string]error{
		"doctors": errors.New("validation failed: unknown data type"),
	}}

	res := o.RunIncrementalETL(context.Background(), src, "doctors", time.Now().AddDate(0, 0, -7), time.Now())

	if res.Status != "failed" {
		t.Errorf("status = %q, want failed", res.Status)
	}
	if res.Error == "" {
		t.Error("error message not recorded")
	}
	// data_validation errors are never retried.
	if len(src.calls) != 1 {
		t.Errorf("source called %d times, want 1", len(src.calls))
	}
}

func TestRunFullETL_RecordsOutcomesInLedger(t *testing.T) {
	exec := etl.NewExecutor(etl.NewPolicyStore(), etl.NewLedger(), zerolog.Nop(),
		etl.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	o := NewOrchestrator(
		NewExporter(t.TempDir(), "", zerolog.Nop()),
		NewPipelineTrigger("", zerolog.Nop()),
		exec, zerolog.Nop())

	src := &fakeSource{failTypes: map[string]error{
		"doctors": errors.New("quota exceeded"),
	}}
	o.RunFullETL(context.Background(), src, time.Now().AddDate(0, -1, 0), time.Now())

	// resource_limit policy allows a single attempt, so exactly one outcome.
	outcomes := exec.Ledger().Query(etl.QueryFilter{Category: etl.CategoryResourceLimit})
	if len(outcomes) != 1 {
		t.Fatalf("got %d resource_limit outcomes, want 1", len(outcomes))
	}
	if outcomes[0].Context["data_type"] != "doctors" {
		t.Errorf("outcome context = %v", outcomes[0].Context)
	}
}
