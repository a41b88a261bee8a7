package etl

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Operation is a unit of work the Executor can run. It returns a value on
// success and an error on failure; the Executor imposes no other contract.
type Operation func(ctx context.Context) (any, error)

// CallOption customizes a single Execute call.
type CallOption func(*callConfig)

type callConfig struct {
	context  map[string]string
	override *RetryPolicy
}

// WithCallContext merges the given annotations into every outcome record
// written for this call.
func WithCallContext(kv map[string]string) CallOption {
	return func(c *callConfig) { c.context = kv }
}

// WithPolicy replaces the category-based policy lookup for this call only.
// The stored per-category defaults are not modified.
func WithPolicy(p RetryPolicy) CallOption {
	return func(c *callConfig) { c.override = &p }
}

// Executor runs operations with classification-driven retries. Failed
// attempts are recorded in the ledger; retries are transparent to the caller,
// which only sees the final value or a terminal *OperationError.
type Executor struct {
	policies *PolicyStore
	ledger   *Ledger
	logger   zerolog.Logger

	// sleep and randFloat are injection points for tests.
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// ExecutorOption customizes an Executor at construction.
type ExecutorOption func(*Executor)

// WithSleep replaces the backoff sleep function.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithRand replaces the jitter source. The function must return values
// in [0, 1).
func WithRand(fn func() float64) ExecutorOption {
	return func(e *Executor) { e.randFloat = fn }
}

// NewExecutor creates an Executor with the given policy store and ledger.
func NewExecutor(policies *PolicyStore, ledger *Ledger, logger zerolog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		policies:  policies,
		ledger:    ledger,
		logger:    logger.With().Str("component", "etl_executor").Logger(),
		sleep:     sleepContext,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the executor's outcome ledger.
func (e *Executor) Ledger() *Ledger { return e.ledger }

// Policies returns the executor's policy store.
func (e *Executor) Policies() *PolicyStore { return e.policies }

// sleepContext waits for d or until ctx is done, whichever comes first. The
// wait is cooperative: it parks only the calling goroutine.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the wait before the retry following the given attempt,
// applying jitter in [0.5, 1.0) of the deterministic delay when enabled.
func (e *Executor) backoff(p RetryPolicy, attempt int) time.Duration {
	d := p.Delay(attempt)
	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + e.randFloat()*0.5))
	}
	return d
}

// Execute runs op, retrying per the classified category's policy. name
// identifies the operation in outcome records and logs. On success the
// operation's value is returned and nothing is recorded. Every failed
// attempt is appended to the ledger; once attempts are exhausted (or the
// context is cancelled during backoff) a *OperationError carrying the final
// classification is returned.
func (e *Executor) Execute(ctx context.Context, name string, op Operation, opts ...CallOption) (any, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	attempt := 1
	for {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		cat := Classify(err)
		sev := SeverityOf(cat)

		outcomeCtx := map[string]string{
			"attempt":   strconv.Itoa(attempt),
			"operation": name,
		}
		for k, v := range cfg.context {
			outcomeCtx[k] = truncate(v, 200)
		}

		outcome := Outcome{
			Message:   err.Error(),
			Category:  cat,
			Severity:  sev,
			Context:   outcomeCtx,
			Timestamp: time.Now().UTC(),
		}
		e.ledger.Append(outcome)
		e.logOutcome(outcome)

		policy := e.policies.PolicyFor(cat)
		if cfg.override != nil {
			policy = *cfg.override
		}

		if attempt >= policy.MaxAttempts {
			e.logger.Error().
				Str("operation", name).
				Int("max_attempts", policy.MaxAttempts).
				Msg("retry attempts exhausted")
			return nil, &OperationError{
				Message:   err.Error(),
				Category:  cat,
				Severity:  sev,
				Context:   outcomeCtx,
				Timestamp: outcome.Timestamp,
				cause:     err,
			}
		}

		delay := e.backoff(policy, attempt)
		e.logger.Info().
			Str("operation", name).
			Dur("delay", delay).
			Int("next_attempt", attempt+1).
			Int("max_attempts", policy.MaxAttempts).
			Msg("retrying operation")

		if serr := e.sleep(ctx, delay); serr != nil {
			return nil, &OperationError{
				Message:   fmt.Sprintf("retry aborted: %v (last error: %v)", serr, err),
				Category:  cat,
				Severity:  sev,
				Context:   outcomeCtx,
				Timestamp: time.Now().UTC(),
				cause:     err,
			}
		}
		attempt++
	}
}

// logOutcome logs a failed attempt at a level matching its severity.
func (e *Executor) logOutcome(o Outcome) {
	var evt *zerolog.Event
	switch o.Severity {
	case SeverityCritical:
		evt = e.logger.Error().Bool("critical", true)
	case SeverityHigh:
		evt = e.logger.Error()
	case SeverityMedium:
		evt = e.logger.Warn()
	default:
		evt = e.logger.Info()
	}
	evt.
		Str("category", string(o.Category)).
		Str("severity", string(o.Severity)).
		Str("attempt", o.Context["attempt"]).
		Str("operation", o.Context["operation"]).
		Msg(o.Message)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
