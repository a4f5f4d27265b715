// Package progress extracts encode progress from ffmpeg's diagnostic stream.
//
// ffmpeg prints the input duration once ("Duration: 01:02:03.45") and then a
// status line carrying "time=00:10:00.00" as the encode advances. Tracker
// correlates those lines with the job that produced them by job ID and
// publishes events to a caller-supplied sink.
package progress

import (
	"regexp"
	"strconv"
	"sync"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// EventKind distinguishes progress events.
type EventKind int

const (
	// EventDuration fires once when a job's total duration becomes known.
	EventDuration EventKind = iota
	// EventTime fires whenever the encoded position advances.
	EventTime
	// EventFinished fires when the job ends, whether or not it succeeded.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventDuration:
		return "duration"
	case EventTime:
		return "time"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// JobRecord describes a running encode for display.
type JobRecord struct {
	DisplayName string
	Profile     string
	Command     string
}

// Event is published to the sink.
type Event struct {
	Kind    EventKind
	JobID   string
	Job     JobRecord
	Total   float64
	Elapsed float64
	// Success is only meaningful on EventFinished.
	Success bool
}

// Percent returns completion in [0, 100], or -1 when the total is unknown.
func (e Event) Percent() float64 {
	if e.Total <= 0 {
		return -1
	}
	return e.Elapsed / e.Total * 100
}

// Sink receives progress events. It is called synchronously and must not block.
type Sink func(Event)

type state struct {
	total   float64
	elapsed float64
}

// Tracker holds per-job progress state.
type Tracker struct {
	mu      sync.Mutex
	records map[string]JobRecord
	states  map[string]*state
	sink    Sink
}

// NewTracker returns a Tracker publishing to sink. A nil sink discards events.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = func(Event) {}
	}
	return &Tracker{
		records: make(map[string]JobRecord),
		states:  make(map[string]*state),
		sink:    sink,
	}
}

// Register associates a job ID with its display record.
func (t *Tracker) Register(jobID string, record JobRecord) {
	t.mu.Lock()
	t.records[jobID] = record
	t.mu.Unlock()
}

// Record returns the display record of a job.
func (t *Tracker) Record(jobID string) (JobRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[jobID]
	return rec, ok
}

// Observe feeds one diagnostic line from jobID.
func (t *Tracker) Observe(jobID, line string) {
	if total, ok := ParseDuration(line); ok {
		t.openEntry(jobID, total)
		return
	}
	if elapsed, ok := ParseTime(line); ok {
		t.advance(jobID, elapsed)
	}
}

func (t *Tracker) openEntry(jobID string, total float64) {
	t.mu.Lock()
	if _, exists := t.states[jobID]; exists {
		t.mu.Unlock()
		return
	}
	t.states[jobID] = &state{total: total}
	ev := Event{Kind: EventDuration, JobID: jobID, Job: t.records[jobID], Total: total}
	t.mu.Unlock()
	t.sink(ev)
}

func (t *Tracker) advance(jobID string, elapsed float64) {
	t.mu.Lock()
	st, ok := t.states[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if elapsed > st.total {
		elapsed = st.total
	}
	if elapsed <= st.elapsed {
		t.mu.Unlock()
		return
	}
	st.elapsed = elapsed
	ev := Event{Kind: EventTime, JobID: jobID, Job: t.records[jobID], Total: st.total, Elapsed: st.elapsed}
	t.mu.Unlock()
	t.sink(ev)
}

// Finish closes the job's progress entry and publishes EventFinished.
func (t *Tracker) Finish(jobID string, success bool) {
	t.mu.Lock()
	ev := Event{Kind: EventFinished, JobID: jobID, Job: t.records[jobID], Success: success}
	if st, ok := t.states[jobID]; ok {
		ev.Total = st.total
		ev.Elapsed = st.elapsed
		if success {
			ev.Elapsed = st.total
		}
		delete(t.states, jobID)
	}
	t.mu.Unlock()
	t.sink(ev)
}

// ParseDuration extracts the total duration in seconds from a "Duration:" line.
func ParseDuration(line string) (float64, bool) {
	return parseClock(durationPattern, line)
}

// ParseTime extracts the encoded position in seconds from a "time=" status line.
func ParseTime(line string) (float64, bool) {
	return parseClock(timePattern, line)
}

func parseClock(pattern *regexp.Regexp, line string) (float64, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}
