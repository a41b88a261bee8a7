package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/etl/scheduler"
	"github.com/hms/hms/internal/warehouse"
)

// MaxExportRangeDays bounds the window a manual ETL run may cover.
const MaxExportRangeDays = 90

// ETLControl glues the analytics export surface to the warehouse
// orchestrator and the job scheduler. Manual runs go through the
// scheduler's ad hoc path so they land in the same run history as
// scheduled jobs.
type ETLControl struct {
	sched  *scheduler.Scheduler
	orch   *warehouse.Orchestrator
	src    warehouse.DataSource
	logger zerolog.Logger
}

// NewETLControl wires an ETLControl from its collaborators.
func NewETLControl(sched *scheduler.Scheduler, orch *warehouse.Orchestrator, src warehouse.DataSource, logger zerolog.Logger) *ETLControl {
	return &ETLControl{
		sched:  sched,
		orch:   orch,
		src:    src,
		logger: logger.With().Str("component", "etl_control").Logger(),
	}
}

// TriggerManualETL validates the request and runs an ad hoc ETL job,
// full for "all" and incremental otherwise. The returned run carries the
// export and pipeline outcomes.
func (e *ETLControl) TriggerManualETL(ctx context.Context, dataType string, start, end time.Time) (scheduler.JobRun, error) {
	if !ValidExportType(dataType) {
		return scheduler.JobRun{}, fmt.Errorf("invalid data type %q, must be one of appointments, resources, doctors, all", dataType)
	}
	if end.Before(start) {
		return scheduler.JobRun{}, fmt.Errorf("start date must not be after end date")
	}
	if end.Sub(start) > MaxExportRangeDays*24*time.Hour {
		return scheduler.JobRun{}, fmt.Errorf("date range must not exceed %d days", MaxExportRangeDays)
	}

	jobName := fmt.Sprintf("manual_%s_etl", dataType)
	run := e.sched.RunAdHoc(ctx, "manual", jobName, func(ctx context.Context) (scheduler.JobPayload, error) {
		var res warehouse.Result
		if dataType == ExportAll {
			res = e.orch.RunFullETL(ctx, e.src, start, end)
		} else {
			res = e.orch.RunIncrementalETL(ctx, e.src, dataType, start, end)
		}
		payload := scheduler.JobPayload{
			DataExports:  res.DataExports,
			PipelineRuns: res.PipelineRuns,
		}
		if res.Error != "" {
			return payload, fmt.Errorf("%s", res.Error)
		}
		return payload, nil
	})
	return run, nil
}

// Status reports the registered jobs and the most recent run history.
// limit is clamped to [1, 100]; zero means the default of 10.
func (e *ETLControl) Status(limit int) map[string]any {
	switch {
	case limit <= 0:
		limit = 10
	case limit > 100:
		limit = 100
	}
	return map[string]any{
		"timestamp":             time.Now().UTC().Format(time.RFC3339),
		"scheduled_jobs":        e.sched.Jobs(),
		"job_history":           e.sched.History(limit),
		"total_history_entries": e.sched.HistoryLen(),
	}
}

// Manage applies a lifecycle action to a scheduled job. It reports false
// for unknown actions and unknown job ids alike.
func (e *ETLControl) Manage(jobID, action string) bool {
	var ok bool
	switch action {
	case "pause":
		ok = e.sched.Pause(jobID)
	case "resume":
		ok = e.sched.Resume(jobID)
	case "remove":
		ok = e.sched.Remove(jobID)
	default:
		return false
	}
	if ok {
		e.logger.Info().Str("job_id", jobID).Str("action", action).Msg("job action applied")
	}
	return ok
}
