package detector

// history is a bounded FIFO of event records. Insertion order is
// chronological order; the oldest record is evicted once the capacity
// is exceeded.
type history struct {
	records []EventRecord
	cap     int
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &history{records: make([]EventRecord, 0, capacity), cap: capacity}
}

func (h *history) append(rec EventRecord) {
	if len(h.records) == h.cap {
		copy(h.records, h.records[1:])
		h.records[len(h.records)-1] = rec
		return
	}
	h.records = append(h.records, rec)
}

func (h *history) clear() {
	h.records = h.records[:0]
}

func (h *history) len() int {
	return len(h.records)
}

// tail returns the most recent n records (fewer if the history is
// shorter). The returned slice aliases the history and must not be
// retained across mutations.
func (h *history) tail(n int) []EventRecord {
	if n >= len(h.records) {
		return h.records
	}
	return h.records[len(h.records)-n:]
}

func (h *history) last() (EventRecord, bool) {
	if len(h.records) == 0 {
		return EventRecord{}, false
	}
	return h.records[len(h.records)-1], true
}

// pressTail returns the most recent n press records in order.
func (h *history) pressTail(n int) []EventRecord {
	out := make([]EventRecord, 0, n)
	for i := len(h.records) - 1; i >= 0 && len(out) < n; i-- {
		if h.records[i].Kind == KindPress {
			out = append(out, h.records[i])
		}
	}
	// Collected newest-first; restore chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (h *history) pressCount() int {
	count := 0
	for _, rec := range h.records {
		if rec.Kind == KindPress {
			count++
		}
	}
	return count
}
