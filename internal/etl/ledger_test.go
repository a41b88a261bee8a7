package etl

import (
	"fmt"
	"testing"
	"time"
)

func makeOutcome(i int, cat Category, sev Severity, ts time.Time) Outcome {
	return Outcome{
		Message:   fmt.Sprintf("error %d", i),
		Category:  cat,
		Severity:  sev,
		Timestamp: ts,
	}
}

func TestLedger_AppendEvictsOldest(t *testing.T) {
	l := NewLedgerWithCapacity(5)
	base := time.Now().UTC()
	for i := 0; i < 8; i++ {
		l.Append(makeOutcome(i, CategoryUnknown, SeverityMedium, base.Add(time.Duration(i)*time.Second)))
	}

	if l.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", l.Len())
	}

	records := l.Query(QueryFilter{})
	if records[0].Message != "error 3" {
		t.Errorf("oldest survivor = %q, want \"error 3\"", records[0].Message)
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Fatal("records out of chronological order after eviction")
		}
	}
}

func TestLedger_DefaultCapacity(t *testing.T) {
	l := NewLedger()
	for i := 0; i < DefaultLedgerCapacity+50; i++ {
		l.Append(makeOutcome(i, CategoryUnknown, SeverityMedium, time.Now()))
	}
	if l.Len() != DefaultLedgerCapacity {
		t.Errorf("Len() = %d, want %d", l.Len(), DefaultLedgerCapacity)
	}
	records := l.Query(QueryFilter{})
	if records[0].Message != "error 50" {
		t.Errorf("oldest survivor = %q, want \"error 50\"", records[0].Message)
	}
}

func TestLedger_QueryFilters(t *testing.T) {
	l := NewLedgerWithCapacity(100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	l.Append(makeOutcome(0, CategoryDatabaseConnection, SeverityHigh, base))
	l.Append(makeOutcome(1, CategoryDataValidation, SeverityLow, base.Add(time.Minute)))
	l.Append(makeOutcome(2, CategoryDatabaseConnection, SeverityHigh, base.Add(2*time.Minute)))
	l.Append(makeOutcome(3, CategoryAuthentication, SeverityCritical, base.Add(3*time.Minute)))

	t.Run("by category", func(t *testing.T) {
		got := l.Query(QueryFilter{Category: CategoryDatabaseConnection})
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
	})

	t.Run("by severity", func(t *testing.T) {
		got := l.Query(QueryFilter{Severity: SeverityCritical})
		if len(got) != 1 || got[0].Message != "error 3" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("since", func(t *testing.T) {
		got := l.Query(QueryFilter{Since: base.Add(90 * time.Second)})
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
	})

	t.Run("limit keeps most recent", func(t *testing.T) {
		got := l.Query(QueryFilter{Limit: 2})
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		if got[0].Message != "error 2" || got[1].Message != "error 3" {
			t.Errorf("limit did not keep the most recent records: %+v", got)
		}
	})

	t.Run("combined", func(t *testing.T) {
		got := l.Query(QueryFilter{Category: CategoryDatabaseConnection, Since: base.Add(time.Minute)})
		if len(got) != 1 || got[0].Message != "error 2" {
			t.Fatalf("unexpected result: %+v", got)
		}
	})
}

func TestLedger_QueryDoesNotMutate(t *testing.T) {
	l := NewLedgerWithCapacity(10)
	l.Append(makeOutcome(0, CategoryUnknown, SeverityMedium, time.Now()))
	l.Append(makeOutcome(1, CategoryUnknown, SeverityMedium, time.Now()))

	_ = l.Query(QueryFilter{Category: CategoryDataExport})
	_ = l.Query(QueryFilter{Limit: 1})

	if l.Len() != 2 {
		t.Errorf("Len() = %d after queries, want 2", l.Len())
	}
}

func TestLedger_StatsEmpty(t *testing.T) {
	l := NewLedger()
	stats := l.Stats(time.Time{})

	if stats.TotalErrors != 0 {
		t.Errorf("TotalErrors = %d, want 0", stats.TotalErrors)
	}
	if stats.ByCategory == nil || len(stats.ByCategory) != 0 {
		t.Errorf("ByCategory = %v, want empty map", stats.ByCategory)
	}
	if stats.BySeverity == nil || len(stats.BySeverity) != 0 {
		t.Errorf("BySeverity = %v, want empty map", stats.BySeverity)
	}
	if stats.RecentCritical == nil || len(stats.RecentCritical) != 0 {
		t.Errorf("RecentCritical = %v, want empty slice", stats.RecentCritical)
	}
}

func TestLedger_Stats(t *testing.T) {
	l := NewLedgerWithCapacity(100)
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		l.Append(makeOutcome(i, CategoryDatabaseConnection, SeverityHigh, base.Add(time.Duration(i)*time.Minute)))
	}
	l.Append(makeOutcome(5, CategoryAuthentication, SeverityCritical, base.Add(10*time.Minute)))
	l.Append(makeOutcome(6, CategoryDataValidation, SeverityLow, base.Add(11*time.Minute)))

	stats := l.Stats(time.Time{})
	if stats.TotalErrors != 7 {
		t.Errorf("TotalErrors = %d, want 7", stats.TotalErrors)
	}
	if stats.ByCategory[CategoryDatabaseConnection] != 5 {
		t.Errorf("ByCategory[database_connection] = %d, want 5", stats.ByCategory[CategoryDatabaseConnection])
	}
	if stats.BySeverity[SeverityCritical] != 1 {
		t.Errorf("BySeverity[critical] = %d, want 1", stats.BySeverity[SeverityCritical])
	}
	if len(stats.RecentCritical) != 1 || stats.RecentCritical[0].Message != "error 5" {
		t.Errorf("RecentCritical = %+v", stats.RecentCritical)
	}
}

func TestLedger_StatsRecentCriticalWindow(t *testing.T) {
	l := NewLedgerWithCapacity(100)
	base := time.Now().UTC().Add(-time.Hour)

	// A critical record followed by 10 non-critical ones: the critical record
	// falls outside the 10-most-recent window.
	l.Append(makeOutcome(0, CategoryAuthentication, SeverityCritical, base))
	for i := 1; i <= 10; i++ {
		l.Append(makeOutcome(i, CategoryUnknown, SeverityMedium, base.Add(time.Duration(i)*time.Minute)))
	}

	stats := l.Stats(time.Time{})
	if len(stats.RecentCritical) != 0 {
		t.Errorf("RecentCritical = %+v, want empty", stats.RecentCritical)
	}
	if stats.BySeverity[SeverityCritical] != 1 {
		t.Errorf("BySeverity[critical] = %d, want 1", stats.BySeverity[SeverityCritical])
	}
}
