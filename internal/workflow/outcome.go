package workflow

import "time"

// Outcome classifies how a video finished.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Result is the record of one ProcessVideo call.
type Result struct {
	VideoID  string
	Title    string
	URL      string
	Folder   string
	Outcome  Outcome
	Attempts int
	Err      error
	Duration time.Duration
}
