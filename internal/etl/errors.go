// Package etl provides the retryable operation executor used by the
// analytics export jobs: failure classification, per-category retry
// policies, randomized exponential backoff, and a bounded history of
// failed attempts for observability.
package etl

import (
	"strings"
	"time"
)

// Category classifies a failure by its likely cause.
type Category string

const (
	CategoryDatabaseConnection Category = "database_connection"
	CategoryDataValidation     Category = "data_validation"
	CategoryExternalService    Category = "external_service"
	CategoryPipelineExecution  Category = "pipeline_execution"
	CategoryDataExport         Category = "data_export"
	CategoryNetworkTimeout     Category = "network_timeout"
	CategoryAuthentication     Category = "authentication"
	CategoryResourceLimit      Category = "resource_limit"
	CategoryUnknown            Category = "unknown"
)

// Severity is the urgency level derived from a failure's category.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// classificationRule maps message keywords to a category. Rules are evaluated
// in order; the first rule with a matching keyword wins.
type classificationRule struct {
	keywords []string
	category Category
}

var classificationRules = []classificationRule{
	{[]string{"connection", "database"}, CategoryDatabaseConnection},
	{[]string{"azure", "blob", "synapse", "warehouse", "storage"}, CategoryExternalService},
	{[]string{"timeout", "timed out"}, CategoryNetworkTimeout},
	{[]string{"pipeline", "data factory"}, CategoryPipelineExecution},
	{[]string{"export", "upload"}, CategoryDataExport},
	{[]string{"auth", "credential", "permission"}, CategoryAuthentication},
	{[]string{"limit", "quota", "throttle"}, CategoryResourceLimit},
	{[]string{"validation", "invalid"}, CategoryDataValidation},
}

// Classify maps an error to a Category by case-insensitive substring matching
// against its message. It is pure and total: a nil or unrecognized error
// classifies as CategoryUnknown. Classification by message text is inherently
// fragile, but it matches how upstream collaborators report their failures;
// structured error codes would require every collaborator to adopt them.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.category
			}
		}
	}
	return CategoryUnknown
}

var severityByCategory = map[Category]Severity{
	CategoryDatabaseConnection: SeverityHigh,
	CategoryExternalService:    SeverityHigh,
	CategoryPipelineExecution:  SeverityHigh,
	CategoryAuthentication:     SeverityCritical,
	CategoryResourceLimit:      SeverityMedium,
	CategoryNetworkTimeout:     SeverityMedium,
	CategoryDataExport:         SeverityMedium,
	CategoryDataValidation:     SeverityLow,
	CategoryUnknown:            SeverityMedium,
}

// SeverityOf returns the fixed severity for a category.
func SeverityOf(cat Category) Severity {
	if s, ok := severityByCategory[cat]; ok {
		return s
	}
	return SeverityMedium
}

// OperationError is the terminal error returned by the Executor once an
// operation has exhausted its retries. It carries the full classification of
// the final attempt so callers can branch on category or severity without
// re-parsing message text.
type OperationError struct {
	Message    string            `json:"message"`
	Category   Category          `json:"category"`
	Severity   Severity          `json:"severity"`
	Context    map[string]string `json:"context,omitempty"`
	RetryAfter *time.Duration    `json:"retry_after,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`

	cause error
}

func (e *OperationError) Error() string {
	return "etl: " + string(e.Category) + ": " + e.Message
}

// Unwrap returns the error from the final failed attempt.
func (e *OperationError) Unwrap() error { return e.cause }
