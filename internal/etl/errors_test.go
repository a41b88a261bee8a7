package etl

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Category
	}{
		{"database keyword", "database connection failed", CategoryDatabaseConnection},
		{"connection keyword", "Connection refused by host", CategoryDatabaseConnection},
		{"blob keyword", "blob not found in container", CategoryExternalService},
		{"warehouse keyword", "warehouse rejected the batch", CategoryExternalService},
		{"timeout keyword", "request TIMEOUT after 30s", CategoryNetworkTimeout},
		{"timed out", "operation timed out", CategoryNetworkTimeout},
		{"pipeline keyword", "pipeline run aborted", CategoryPipelineExecution},
		{"export keyword", "export failed for table appointments", CategoryDataExport},
		{"upload keyword", "upload interrupted", CategoryDataExport},
		{"auth keyword", "authorization denied", CategoryAuthentication},
		{"credential keyword", "bad credential supplied", CategoryAuthentication},
		{"quota keyword", "quota exceeded for subscription", CategoryResourceLimit},
		{"throttle keyword", "request was throttled", CategoryResourceLimit},
		{"validation keyword", "validation error on field dob", CategoryDataValidation},
		{"invalid keyword", "invalid date range", CategoryDataValidation},
		{"no keyword", "something unexpected happened", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(errors.New(tt.msg))
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// "connection" outranks "timeout": a message containing both is a
	// database_connection failure.
	got := Classify(errors.New("database connection timeout"))
	if got != CategoryDatabaseConnection {
		t.Errorf("expected database_connection, got %s", got)
	}

	// "timeout" outranks "upload".
	got = Classify(errors.New("upload timed out"))
	if got != CategoryNetworkTimeout {
		t.Errorf("expected network_timeout, got %s", got)
	}
}

func TestClassify_NilError(t *testing.T) {
	if got := Classify(nil); got != CategoryUnknown {
		t.Errorf("Classify(nil) = %s, want unknown", got)
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		cat  Category
		want Severity
	}{
		{CategoryAuthentication, SeverityCritical},
		{CategoryDatabaseConnection, SeverityHigh},
		{CategoryExternalService, SeverityHigh},
		{CategoryPipelineExecution, SeverityHigh},
		{CategoryResourceLimit, SeverityMedium},
		{CategoryNetworkTimeout, SeverityMedium},
		{CategoryDataExport, SeverityMedium},
		{CategoryUnknown, SeverityMedium},
		{CategoryDataValidation, SeverityLow},
		{Category("made-up"), SeverityMedium},
	}
	for _, tt := range tests {
		if got := SeverityOf(tt.cat); got != tt.want {
			t.Errorf("SeverityOf(%s) = %s, want %s", tt.cat, got, tt.want)
		}
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("database gone")
	opErr := &OperationError{Message: cause.Error(), Category: CategoryDatabaseConnection, cause: cause}

	wrapped := fmt.Errorf("job failed: %w", opErr)

	var target *OperationError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to find *OperationError")
	}
	if target.Category != CategoryDatabaseConnection {
		t.Errorf("category = %s", target.Category)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is failed to find the original cause")
	}
}
