package jobrunner

import "sync"

// DefaultHistorySize is the number of execution records kept.
const DefaultHistorySize = 50

// history is a fixed size ring of execution records plus the counters.
type history struct {
	mu      sync.RWMutex
	records []ExecutionRecord
	next    int
	full    bool
	metrics Metrics
}

func newHistory(size int) *history {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &history{records: make([]ExecutionRecord, size)}
}

func (h *history) add(rec ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch rec.Status {
	case StatusSuccess:
		h.metrics.JobsExecuted++
	case StatusError:
		h.metrics.JobsExecuted++
		h.metrics.JobsFailed++
	case StatusSkipped:
		h.metrics.JobsSkipped++
	}

	h.records[h.next] = rec
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) missed() {
	h.mu.Lock()
	h.metrics.JobsMissed++
	h.mu.Unlock()
}

// list returns records oldest first.
func (h *history) list() []ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.full {
		out := make([]ExecutionRecord, h.next)
		copy(out, h.records[:h.next])
		return out
	}

	out := make([]ExecutionRecord, 0, len(h.records))
	out = append(out, h.records[h.next:]...)
	out = append(out, h.records[:h.next]...)
	return out
}

func (h *history) snapshot() Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.metrics
}

func (h *history) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.records)
	h.next = 0
	h.full = false
	h.metrics = Metrics{}
}
