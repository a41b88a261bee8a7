package scheduler

import "sync"

// defaultHistoryCapacity bounds the job run history.
const defaultHistoryCapacity = 100

// runHistory is a bounded FIFO log of job runs, independent of the
// executor's outcome ledger. Eviction is oldest-first on append; there is no
// separate cleanup pass.
type runHistory struct {
	mu       sync.Mutex
	capacity int
	runs     []JobRun
}

func newRunHistory(capacity int) *runHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &runHistory{capacity: capacity}
}

func (h *runHistory) append(run JobRun) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.runs) >= h.capacity {
		drop := len(h.runs) - h.capacity + 1
		h.runs = append(h.runs[:0], h.runs[drop:]...)
	}
	h.runs = append(h.runs, run)
}

func (h *runHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.runs)
}

// recent returns the most recent limit runs in chronological order; all runs
// when limit <= 0. The result is a copy.
func (h *runHistory) recent(limit int) []JobRun {
	h.mu.Lock()
	defer h.mu.Unlock()

	runs := h.runs
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	out := make([]JobRun, len(runs))
	copy(out, runs)
	return out
}
