package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/etl"
)

// fullETLDataTypes are the data types a full run covers, in order.
var fullETLDataTypes = []string{"appointments", "resources", "doctors"}

// Result carries the outcome of an ETL run. Per-type failures are recorded
// inside PipelineRuns rather than failing the whole run.
type Result struct {
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Status       string         `json:"status"` // running, completed, failed
	DataType     string         `json:"data_type,omitempty"`
	DataExports  map[string]any `json:"data_exports"`
	PipelineRuns map[string]any `json:"pipeline_runs"`
	Error        string         `json:"error,omitempty"`
}

// Orchestrator drives export-then-trigger ETL runs, routing every remote
// call through the retryable executor.
type Orchestrator struct {
	exporter *Exporter
	trigger  *PipelineTrigger
	executor *etl.Executor
	logger   zerolog.Logger
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(exporter *Exporter, trigger *PipelineTrigger, executor *etl.Executor, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		exporter: exporter,
		trigger:  trigger,
		executor: executor,
		logger:   logger,
	}
}

// RunFullETL exports and triggers pipelines for every data type. A failure
// in one data type is recorded in the result and the run continues with the
// next type.
func (o *Orchestrator) RunFullETL(ctx context.Context, src DataSource, start, end time.Time) Result {
	res := Result{
		StartTime:    time.Now().UTC(),
		Status:       "running",
		DataExports:  make(map[string]any),
		PipelineRuns: make(map[string]any),
	}

	for _, dataType := range fullETLDataTypes {
		locations, run, err := o.processDataType(ctx, src, dataType, dataType, start, end, nil)
		if err != nil {
			o.logger.Error().Err(err).Str("data_type", dataType).Msg("data type etl failed")
			res.PipelineRuns[dataType] = map[string]any{
				"status": "failed",
				"error":  err.Error(),
			}
			continue
		}
		res.DataExports[dataType] = locations
		res.PipelineRuns[dataType] = run
	}

	res.EndTime = time.Now().UTC()
	res.Status = "completed"
	o.logger.Info().Int("data_types", len(fullETLDataTypes)).Msg("full etl run completed")
	return res
}

// RunIncrementalETL exports and triggers the incremental pipeline for one
// data type over a date range.
func (o *Orchestrator) RunIncrementalETL(ctx context.Context, src DataSource, dataType string, start, end time.Time) Result {
	res := Result{
		StartTime:    time.Now().UTC(),
		Status:       "running",
		DataType:     dataType,
		DataExports:  make(map[string]any),
		PipelineRuns: make(map[string]any),
	}

	extraParams := map[string]any{"mode": "incremental"}
	locations, run, err := o.processDataType(ctx, src, dataType, dataType+"_incremental", start, end, extraParams)
	res.EndTime = time.Now().UTC()
	if err != nil {
		o.logger.Error().Err(err).Str("data_type", dataType).Msg("incremental etl failed")
		res.Status = "failed"
		res.Error = err.Error()
		return res
	}

	res.DataExports[dataType] = locations
	res.PipelineRuns[dataType] = run
	res.Status = "completed"
	o.logger.Info().Str("data_type", dataType).Msg("incremental etl completed")
	return res
}

// processDataType runs the export-upload-trigger sequence for one data type.
// exportName controls the file name prefix; the pipeline name derives from
// dataType plus the incremental suffix when one applies.
func (o *Orchestrator) processDataType(ctx context.Context, src DataSource, dataType, exportName string, start, end time.Time, extraParams map[string]any) (map[string]string, PipelineRun, error) {
	callCtx := etl.WithCallContext(map[string]string{"data_type": dataType})

	tablesAny, err := o.executor.Execute(ctx, "export_"+dataType+"_data", func(ctx context.Context) (any, error) {
		return src.ExportData(ctx, dataType, start, end)
	}, callCtx)
	if err != nil {
		return nil, PipelineRun{}, err
	}
	tables := tablesAny.(map[string][]map[string]any)

	locationsAny, err := o.executor.Execute(ctx, "export_upload_"+dataType, func(ctx context.Context) (any, error) {
		return o.exporter.Export(ctx, exportName, tables)
	}, callCtx)
	if err != nil {
		return nil, PipelineRun{}, err
	}
	locations := locationsAny.(map[string]string)

	pipeline := fmt.Sprintf("hospital_%s_etl_pipeline", dataType)
	if exportName != dataType {
		pipeline = fmt.Sprintf("hospital_%s_incremental_etl_pipeline", dataType)
	}
	params := map[string]any{
		"start_date": start.UTC().Format("2006-01-02"),
		"end_date":   end.UTC().Format("2006-01-02"),
		"data_files": locations,
	}
	for k, v := range extraParams {
		params[k] = v
	}

	runAny, err := o.executor.Execute(ctx, "trigger_pipeline_"+dataType, func(ctx context.Context) (any, error) {
		return o.trigger.Trigger(ctx, pipeline, params)
	}, callCtx)
	if err != nil {
		return nil, PipelineRun{}, err
	}

	return locations, runAny.(PipelineRun), nil
}
