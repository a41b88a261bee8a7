package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/etl"
	"github.com/hms/hms/internal/etl/scheduler"
	"github.com/hms/hms/internal/warehouse"
)

type staticSource struct{}

func (staticSource) ExportData(_ context.Context, dataType string, _, _ time.Time) (map[string][]map[string]any, error) {
	return map[string][]map[string]any{dataType: {}}, nil
}

func TestRegisterETLJobs(t *testing.T) {
	logger := zerolog.Nop()
	exec := etl.NewExecutor(etl.NewPolicyStore(), etl.NewLedger(), logger)
	exp := warehouse.NewExporter(t.TempDir(), "", logger)
	trig := warehouse.NewPipelineTrigger("", logger)
	orch := warehouse.NewOrchestrator(exp, trig, exec, logger)
	sched := scheduler.New(logger)

	registerETLJobs(sched, orch, staticSource{}, logger)

	jobs := sched.Jobs()
	if len(jobs) != 4 {
		t.Fatalf("got %d jobs, want 4", len(jobs))
	}
	wantIDs := map[string]bool{
		"daily_full_etl":                false,
		"hourly_appointments_etl":       false,
		"resource_utilization_etl":      false,
		"weekly_doctor_performance_etl": false,
	}
	for _, j := range jobs {
		if _, ok := wantIDs[j.ID]; !ok {
			t.Errorf("unexpected job id %q", j.ID)
			continue
		}
		wantIDs[j.ID] = true
	}
	for id, seen := range wantIDs {
		if !seen {
			t.Errorf("missing job %q", id)
		}
	}
}

func TestRegisterETLJobs_ManualRunPath(t *testing.T) {
	logger := zerolog.Nop()
	exec := etl.NewExecutor(etl.NewPolicyStore(), etl.NewLedger(), logger)
	exp := warehouse.NewExporter(t.TempDir(), "", logger)
	trig := warehouse.NewPipelineTrigger("", logger)
	orch := warehouse.NewOrchestrator(exp, trig, exec, logger)
	sched := scheduler.New(logger)

	registerETLJobs(sched, orch, staticSource{}, logger)

	run, err := sched.RunNow(context.Background(), "hourly_appointments_etl")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if run.Status != scheduler.StatusCompleted {
		t.Errorf("status = %q, want completed (error: %s)", run.Status, run.Error)
	}
	if _, ok := run.DataExports["appointments"]; !ok {
		t.Error("missing appointments export in run payload")
	}
}
