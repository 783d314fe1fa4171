package judge

import "cti-precheck/internal/csvio"

// EventKind discriminates the updates the runner streams to the GUI.
type EventKind int

const (
	EventRow EventKind = iota
	EventLog
	EventWorkerLog
	EventProgress
	EventDone
)

// Event is one GUI-bound update. Only the fields relevant to the kind are
// populated.
type Event struct {
	Kind    EventKind
	Row     csvio.Row
	Message string
	Worker  int
	Current int
	Total   int
	Done    *DoneSummary
}

// DoneSummary closes out a run: which lines failed and whether the run was
// cancelled mid-flight.
type DoneSummary struct {
	FailedLines []int
	Cancelled   bool
}
