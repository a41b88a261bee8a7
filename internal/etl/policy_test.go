package etl

import (
	"testing"
	"time"
)

func TestPolicyStore_Defaults(t *testing.T) {
	s := NewPolicyStore()

	tests := []struct {
		cat       Category
		attempts  int
		baseDelay time.Duration
	}{
		{CategoryDatabaseConnection, 5, 2 * time.Second},
		{CategoryExternalService, 4, 5 * time.Second},
		{CategoryNetworkTimeout, 3, 1 * time.Second},
		{CategoryPipelineExecution, 2, 10 * time.Second},
		{CategoryDataExport, 3, 3 * time.Second},
		{CategoryAuthentication, 2, 5 * time.Second},
		{CategoryResourceLimit, 1, 30 * time.Second},
		{CategoryDataValidation, 1, time.Second},
		{CategoryUnknown, 2, 5 * time.Second},
	}
	for _, tt := range tests {
		p := s.PolicyFor(tt.cat)
		if p.MaxAttempts != tt.attempts {
			t.Errorf("%s: MaxAttempts = %d, want %d", tt.cat, p.MaxAttempts, tt.attempts)
		}
		if p.BaseDelay != tt.baseDelay {
			t.Errorf("%s: BaseDelay = %v, want %v", tt.cat, p.BaseDelay, tt.baseDelay)
		}
	}
}

func TestPolicyStore_UnknownFallback(t *testing.T) {
	s := NewPolicyStore()
	got := s.PolicyFor(Category("never-registered"))
	want := s.PolicyFor(CategoryUnknown)
	if got != want {
		t.Errorf("unregistered category policy = %+v, want unknown fallback %+v", got, want)
	}
}

func TestPolicyStore_ShouldRetry(t *testing.T) {
	s := NewPolicyStore()

	for _, cat := range []Category{
		CategoryDatabaseConnection, CategoryExternalService, CategoryNetworkTimeout,
		CategoryPipelineExecution, CategoryDataExport, CategoryAuthentication,
		CategoryResourceLimit, CategoryDataValidation, CategoryUnknown,
	} {
		max := s.PolicyFor(cat).MaxAttempts
		for attempt := 1; attempt <= max+1; attempt++ {
			want := attempt < max
			if got := s.ShouldRetry(cat, attempt); got != want {
				t.Errorf("ShouldRetry(%s, %d) = %v, want %v", cat, attempt, got, want)
			}
		}
	}

	// Validation errors are never retried.
	if s.ShouldRetry(CategoryDataValidation, 1) {
		t.Error("data_validation must not retry after the first attempt")
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second, ExponentialBase: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second}, // capped
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_DelayMonotone(t *testing.T) {
	p := RetryPolicy{BaseDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, ExponentialBase: 2.0}
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("Delay(%d) = %v exceeds MaxDelay %v", attempt, d, p.MaxDelay)
		}
		prev = d
	}
}
