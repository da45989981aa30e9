package services

import (
	"sync"
	"time"

	"communityhub/internal/core/domain"
	"communityhub/pkg/utils"
)

// DefaultWindow is the trailing interval sampled by the metrics window
const DefaultWindow = 60 * time.Second

type statusEvent struct {
	at   time.Time
	code int
}

type sourceEntry struct {
	count int
	seq   uint64
}

// WindowCounts is a consistent copy of the window taken under its lock
type WindowCounts struct {
	Requests int
	// Sources is ordered by first registration inside the window
	Sources  []domain.SourceCount
	Statuses map[int]int
}

// MetricsWindow holds recent request evidence. Per-source and per-status
// counts only cover events still inside the window and shrink as events are pruned.
type MetricsWindow struct {
	mu sync.Mutex

	window time.Duration
	clock  utils.Clock

	requests  []domain.RequestEvent
	responses []statusEvent

	sources  map[string]*sourceEntry
	statuses map[int]int
	seq      uint64
}

func NewMetricsWindow(window time.Duration, clock utils.Clock) *MetricsWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = utils.SystemClock
	}
	return &MetricsWindow{
		window:   window,
		clock:    clock,
		sources:  make(map[string]*sourceEntry),
		statuses: make(map[int]int),
	}
}

// Window returns the sampled interval
func (w *MetricsWindow) Window() time.Duration {
	return w.window
}

// Now returns the window's clock reading
func (w *MetricsWindow) Now() time.Time {
	return w.clock()
}

// RecordRequest appends a request from source at the current time
func (w *MetricsWindow) RecordRequest(source string) {
	if source == "" {
		source = "unknown"
	}
	now := w.clock()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.requests = append(w.requests, domain.RequestEvent{At: now, Source: source})
	entry, ok := w.sources[source]
	if !ok {
		w.seq++
		entry = &sourceEntry{seq: w.seq}
		w.sources[source] = entry
	}
	entry.count++
}

// RecordResponse counts a response status code at the current time
func (w *MetricsWindow) RecordResponse(statusCode int) {
	now := w.clock()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.responses = append(w.responses, statusEvent{at: now, code: statusCode})
	w.statuses[statusCode]++
}

// Prune drops every event older than now minus the window
func (w *MetricsWindow) Prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
}

func (w *MetricsWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)

	i := 0
	for ; i < len(w.requests) && w.requests[i].At.Before(cutoff); i++ {
		src := w.requests[i].Source
		if entry, ok := w.sources[src]; ok {
			entry.count--
			if entry.count <= 0 {
				delete(w.sources, src)
			}
		}
	}
	w.requests = shrink(w.requests, i)

	j := 0
	for ; j < len(w.responses) && w.responses[j].at.Before(cutoff); j++ {
		code := w.responses[j].code
		w.statuses[code]--
		if w.statuses[code] <= 0 {
			delete(w.statuses, code)
		}
	}
	w.responses = shrink(w.responses, j)
}

// shrink removes the first n elements, reallocating once the dead prefix dominates
func shrink[T any](s []T, n int) []T {
	if n == 0 {
		return s
	}
	if n == len(s) {
		return s[:0:0]
	}
	rest := s[n:]
	if n > len(rest) {
		return append([]T(nil), rest...)
	}
	return rest
}

// Counts prunes against now and returns a copy of the window state
func (w *MetricsWindow) Counts(now time.Time) WindowCounts {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)

	sources := make([]domain.SourceCount, 0, len(w.sources))
	seqs := make(map[string]uint64, len(w.sources))
	for src, entry := range w.sources {
		sources = append(sources, domain.SourceCount{Source: src, Count: entry.count})
		seqs[src] = entry.seq
	}
	sortBySeq(sources, seqs)

	statuses := make(map[int]int, len(w.statuses))
	for code, n := range w.statuses {
		statuses[code] = n
	}

	return WindowCounts{
		Requests: len(w.requests),
		Sources:  sources,
		Statuses: statuses,
	}
}
