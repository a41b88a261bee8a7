// Package scheduler runs the recurring analytics/ETL jobs: cron and
// fixed-interval triggers bound to job functions, pause/resume/remove
// lifecycle control, ad hoc manual runs, and a bounded history of job
// executions kept separately from the executor's outcome ledger.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JobPayload is the opaque result a job function reports on success.
type JobPayload struct {
	DataExports  map[string]any `json:"data_exports,omitempty"`
	PipelineRuns map[string]any `json:"pipeline_runs,omitempty"`
}

// JobFunc is the unit of work bound to a trigger. Failures are absorbed at
// the scheduler boundary and recorded in the run history; they never
// propagate to the cron runner.
type JobFunc func(ctx context.Context) (JobPayload, error)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// JobRun records one scheduled or manual execution of a job.
type JobRun struct {
	JobID        string         `json:"job_id"`
	JobType      string         `json:"job_type"`
	JobName      string         `json:"job_name,omitempty"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Status       string         `json:"status"`
	DataExports  map[string]any `json:"data_exports,omitempty"`
	PipelineRuns map[string]any `json:"pipeline_runs,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Trigger string     `json:"trigger"`
	Paused  bool       `json:"paused"`
	NextRun *time.Time `json:"next_run_time,omitempty"`
}

type managedJob struct {
	id      string
	name    string
	trigger string
	entryID cron.EntryID
	fn      JobFunc

	paused  atomic.Bool
	running atomic.Bool
}

// Scheduler owns the registered jobs and their run history. Overlapping
// firings of the same job id are skipped: if a trigger fires while the
// previous invocation is still running, the new firing is dropped and
// logged, never queued.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	history *runHistory

	mu   sync.Mutex
	jobs map[string]*managedJob

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithHistoryCapacity bounds the run history (default 100).
func WithHistoryCapacity(n int) Option {
	return func(s *Scheduler) { s.history = newRunHistory(n) }
}

// New creates a stopped Scheduler. Triggers fire in UTC.
func New(logger zerolog.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger.With().Str("component", "etl_scheduler").Logger(),
		history: newRunHistory(defaultHistoryCapacity),
		jobs:    make(map[string]*managedJob),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCronJob registers fn under id with a 5-field cron spec. Registering an
// existing id replaces the previous binding.
func (s *Scheduler) AddCronJob(id, name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &managedJob{id: id, name: name, trigger: spec, fn: fn}
	entryID, err := s.cron.AddFunc(spec, func() { s.fire(job) })
	if err != nil {
		return fmt.Errorf("add job %s: %w", id, err)
	}
	job.entryID = entryID
	s.replaceLocked(id, job)
	return nil
}

// AddIntervalJob registers fn under id to fire every `every`.
func (s *Scheduler) AddIntervalJob(id, name string, every time.Duration, fn JobFunc) error {
	if every <= 0 {
		return fmt.Errorf("add job %s: interval must be positive", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &managedJob{id: id, name: name, trigger: "@every " + every.String(), fn: fn}
	job.entryID = s.cron.Schedule(cron.Every(every), cron.FuncJob(func() { s.fire(job) }))
	s.replaceLocked(id, job)
	return nil
}

func (s *Scheduler) replaceLocked(id string, job *managedJob) {
	if prev, ok := s.jobs[id]; ok {
		s.cron.Remove(prev.entryID)
	}
	s.jobs[id] = job
}

// Start begins firing triggers. Safe to call once per Scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

// Stop halts the triggers and waits for in-flight job invocations, bounded
// by ctx. Jobs observe cancellation through the scheduler's base context, so
// a stop waits for the current attempt of each running job, not for the
// job's own retries to play out.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Pause suppresses firings of the job. Returns false for unknown ids.
func (s *Scheduler) Pause(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn().Str("job_id", id).Msg("pause: job not found")
		return false
	}
	job.paused.Store(true)
	s.logger.Info().Str("job_id", id).Msg("job paused")
	return true
}

// Resume re-enables a paused job. Returns false for unknown ids.
func (s *Scheduler) Resume(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn().Str("job_id", id).Msg("resume: job not found")
		return false
	}
	job.paused.Store(false)
	s.logger.Info().Str("job_id", id).Msg("job resumed")
	return true
}

// Remove unregisters the job; its id is no longer a valid target for pause
// or resume. Returns false for unknown ids.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		s.logger.Warn().Str("job_id", id).Msg("remove: job not found")
		return false
	}
	s.cron.Remove(job.entryID)
	delete(s.jobs, id)
	s.logger.Info().Str("job_id", id).Msg("job removed")
	return true
}

// Jobs returns a snapshot of the registered jobs.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		info := JobInfo{
			ID:      job.id,
			Name:    job.name,
			Trigger: job.trigger,
			Paused:  job.paused.Load(),
		}
		if entry := s.cron.Entry(job.entryID); !entry.Next.IsZero() {
			next := entry.Next
			info.NextRun = &next
		}
		infos = append(infos, info)
	}
	return infos
}

// History returns the most recent limit runs in chronological order; all
// runs when limit <= 0.
func (s *Scheduler) History(limit int) []JobRun {
	return s.history.recent(limit)
}

// HistoryLen returns the current number of retained runs.
func (s *Scheduler) HistoryLen() int {
	return s.history.len()
}

// RunNow executes a registered job immediately and synchronously, outside
// its schedule. Exactly one JobRun is recorded and returned; a failing job
// yields a run with StatusFailed rather than an error. The error return is
// reserved for unknown ids.
func (s *Scheduler) RunNow(ctx context.Context, id string) (JobRun, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return JobRun{}, fmt.Errorf("run now: job %q not found", id)
	}
	return s.RunAdHoc(ctx, job.id, job.name, job.fn), nil
}

// RunAdHoc executes fn once, synchronously, recording exactly one JobRun.
// It bypasses the pause and overlap checks that apply to scheduled firings.
func (s *Scheduler) RunAdHoc(ctx context.Context, jobType, jobName string, fn JobFunc) JobRun {
	s.wg.Add(1)
	defer s.wg.Done()
	return s.invoke(ctx, jobType, jobName, fn)
}

// fire is the scheduled-trigger path: it applies pause and skip-on-overlap
// before delegating to invoke.
func (s *Scheduler) fire(job *managedJob) {
	if job.paused.Load() {
		return
	}
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn().Str("job_id", job.id).Msg("previous invocation still running, skipping firing")
		return
	}
	defer job.running.Store(false)

	s.wg.Add(1)
	defer s.wg.Done()
	s.invoke(s.baseCtx, job.id, job.name, job.fn)
}

// invoke runs fn and records the outcome. Panics and errors are absorbed
// into a failed JobRun.
func (s *Scheduler) invoke(ctx context.Context, jobType, jobName string, fn JobFunc) JobRun {
	run := JobRun{
		JobID:     newRunID(jobType),
		JobType:   jobType,
		JobName:   jobName,
		StartTime: time.Now().UTC(),
		Status:    StatusRunning,
	}
	s.logger.Info().Str("job_id", run.JobID).Str("job_type", jobType).Msg("job started")

	payload, err := s.safeCall(ctx, fn)
	run.EndTime = time.Now().UTC()

	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		s.logger.Error().Err(err).Str("job_id", run.JobID).Str("job_type", jobType).Msg("job failed")
	} else {
		run.Status = StatusCompleted
		run.DataExports = payload.DataExports
		run.PipelineRuns = payload.PipelineRuns
		s.logger.Info().Str("job_id", run.JobID).Str("job_type", jobType).Msg("job completed")
	}

	s.history.append(run)
	return run
}

func (s *Scheduler) safeCall(ctx context.Context, fn JobFunc) (payload JobPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// newRunID builds a unique run id: a time-derived prefix for readability
// plus a random suffix so rapid successive runs never collide.
func newRunID(jobType string) string {
	return fmt.Sprintf("%s_%s_%s", jobType,
		time.Now().UTC().Format("20060102_150405"),
		uuid.New().String()[:8])
}
