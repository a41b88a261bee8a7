package etl

import "time"

// RetryPolicy governs how many times an operation is attempted and the shape
// of the backoff between attempts.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultRetryPolicy returns the baseline policy used where no category
// entry applies.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// Delay returns the backoff before the retry following the given attempt
// (1-based), before jitter: min(base * expBase^(attempt-1), max).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay)
	base := p.ExponentialBase
	if base <= 0 {
		base = 2.0
	}
	for i := 1; i < attempt; i++ {
		d *= base
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if max := p.MaxDelay; max > 0 && time.Duration(d) > max {
		return max
	}
	return time.Duration(d)
}

// PolicyStore holds the per-category retry policies. Policies are fixed at
// construction; callers needing different behavior for a single invocation
// pass an override to the Executor instead of mutating the store.
type PolicyStore struct {
	policies map[Category]RetryPolicy
}

func categoryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = maxAttempts
	p.BaseDelay = baseDelay
	return p
}

// NewPolicyStore returns a store with the default policy per category.
// Validation failures get a single attempt: bad input will not succeed on
// retry. Resource limits likewise get no retry within the same invocation.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{policies: map[Category]RetryPolicy{
		CategoryDatabaseConnection: categoryPolicy(5, 2*time.Second),
		CategoryExternalService:    categoryPolicy(4, 5*time.Second),
		CategoryNetworkTimeout:     categoryPolicy(3, 1*time.Second),
		CategoryPipelineExecution:  categoryPolicy(2, 10*time.Second),
		CategoryDataExport:         categoryPolicy(3, 3*time.Second),
		CategoryAuthentication:     categoryPolicy(2, 5*time.Second),
		CategoryResourceLimit:      categoryPolicy(1, 30*time.Second),
		CategoryDataValidation:     categoryPolicy(1, time.Second),
		CategoryUnknown:            categoryPolicy(2, 5*time.Second),
	}}
}

// PolicyFor returns the policy for a category, falling back to the
// CategoryUnknown policy when the category has no explicit entry.
func (s *PolicyStore) PolicyFor(cat Category) RetryPolicy {
	if p, ok := s.policies[cat]; ok {
		return p
	}
	return s.policies[CategoryUnknown]
}

// ShouldRetry reports whether another attempt is allowed after the given
// 1-based attempt number failed.
func (s *PolicyStore) ShouldRetry(cat Category, attempt int) bool {
	return attempt < s.PolicyFor(cat).MaxAttempts
}
