package etl

import (
	"sync"
	"time"
)

// DefaultLedgerCapacity bounds the outcome history.
const DefaultLedgerCapacity = 1000

// Outcome is the immutable record of one failed attempt. Records are only
// ever appended; the oldest are evicted once the ledger is full.
type Outcome struct {
	Message    string            `json:"message"`
	Category   Category          `json:"category"`
	Severity   Severity          `json:"severity"`
	Context    map[string]string `json:"context,omitempty"`
	RetryAfter *time.Duration    `json:"retry_after,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// QueryFilter selects a subset of the ledger. Zero-valued fields are ignored;
// set fields are AND-combined. Limit keeps the most recent N records after
// filtering.
type QueryFilter struct {
	Limit    int
	Category Category
	Severity Severity
	Since    time.Time
}

// Statistics summarizes the ledger for monitoring.
type Statistics struct {
	TotalErrors    int              `json:"total_errors"`
	ByCategory     map[Category]int `json:"by_type"`
	BySeverity     map[Severity]int `json:"by_severity"`
	RecentCritical []Outcome        `json:"recent_critical"`
	PeriodStart    *time.Time       `json:"period_start,omitempty"`
	PeriodEnd      time.Time        `json:"period_end"`
}

// Ledger is a bounded, append-only, oldest-evicted-first log of outcomes.
// Eviction happens on append, one record at a time, so the ledger never
// holds more than its capacity. All methods are safe for concurrent use;
// reads return snapshots and never observe a partial append or eviction.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	records  []Outcome
}

// NewLedger creates a ledger bounded at DefaultLedgerCapacity.
func NewLedger() *Ledger {
	return NewLedgerWithCapacity(DefaultLedgerCapacity)
}

// NewLedgerWithCapacity creates a ledger with an explicit bound. Capacity
// values below 1 are treated as 1.
func NewLedgerWithCapacity(capacity int) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{capacity: capacity}
}

// Append adds a record, evicting the oldest if the ledger is at capacity.
func (l *Ledger) Append(rec Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) >= l.capacity {
		drop := len(l.records) - l.capacity + 1
		l.records = append(l.records[:0], l.records[drop:]...)
	}
	l.records = append(l.records, rec)
}

// Len returns the current number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Query returns records matching the filter in chronological order.
func (l *Ledger) Query(f QueryFilter) []Outcome {
	l.mu.Lock()
	snapshot := make([]Outcome, len(l.records))
	copy(snapshot, l.records)
	l.mu.Unlock()

	filtered := snapshot[:0:0]
	for _, rec := range snapshot {
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		if f.Severity != "" && rec.Severity != f.Severity {
			continue
		}
		if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
			continue
		}
		filtered = append(filtered, rec)
	}

	if f.Limit > 0 && len(filtered) > f.Limit {
		filtered = filtered[len(filtered)-f.Limit:]
	}
	return filtered
}

// Stats computes aggregate counts over records at or after since (all
// records when since is zero). RecentCritical holds the critical-severity
// subset of the 10 most recent matching records.
func (l *Ledger) Stats(since time.Time) Statistics {
	records := l.Query(QueryFilter{Since: since})

	stats := Statistics{
		TotalErrors:    len(records),
		ByCategory:     make(map[Category]int),
		BySeverity:     make(map[Severity]int),
		RecentCritical: []Outcome{},
		PeriodEnd:      time.Now().UTC(),
	}
	if !since.IsZero() {
		s := since
		stats.PeriodStart = &s
	}

	for _, rec := range records {
		stats.ByCategory[rec.Category]++
		stats.BySeverity[rec.Severity]++
	}

	recent := records
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	for _, rec := range recent {
		if rec.Severity == SeverityCritical {
			stats.RecentCritical = append(stats.RecentCritical, rec)
		}
	}
	return stats
}
