package history

import "time"

// Outcome is the terminal state of one file in a run.
type Outcome string

const (
	OutcomeEncoded   Outcome = "encoded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeManualFix Outcome = "manual_fix"
)

// Run describes one batch invocation.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Encoders      []string
	Queued        int
	OriginalBytes int64
	NewBytes      int64
}

// Record is a single file outcome.
type Record struct {
	ID            int64
	RunID         string
	TaskID        string
	Path          string
	Encoder       string
	Quality       *int
	Preset        *int
	Outcome       Outcome
	OriginalBytes int64
	NewBytes      int64
	ExitCode      *int
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	RunID    string
	Outcomes []Outcome
	Limit    int
}
