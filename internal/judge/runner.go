// Package judge runs the batch provisioning check: it dispatches validated
// CSV rows to a pool of checker workers and streams row/progress/log events
// back to the GUI.
package judge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cti-precheck/internal/checker"
	"cti-precheck/internal/csvio"
	"cti-precheck/internal/logger"
)

// Options configures one judgement run.
type Options struct {
	// Workers is the parallel browser count, clamped to 1..8.
	Workers int
	// TargetLines restricts the run to the given 1-based line numbers.
	// Nil means every row.
	TargetLines map[int]bool
}

type Runner struct {
	checker checker.Checker
	logger  logger.Logger
}

func NewRunner(chk checker.Checker, log logger.Logger) *Runner {
	return &Runner{checker: chk, logger: log}
}

// Run starts a judgement pass over rows and returns the event stream. The
// channel is closed after the EventDone message. Cancelling ctx stops the
// run; rows not yet dispatched keep their previous result.
func (r *Runner) Run(ctx context.Context, rows []csvio.Row, opts Options) <-chan Event {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}

	targets := make([]csvio.Row, 0, len(rows))
	for _, row := range rows {
		if opts.TargetLines == nil || opts.TargetLines[row.Line] {
			targets = append(targets, row)
		}
	}

	events := make(chan Event, len(targets)*4+16)
	runID := uuid.NewString()

	r.logger.Info("JudgeRunner", "run started", map[string]interface{}{
		"run_id":  runID,
		"rows":    len(targets),
		"workers": workers,
	})

	go r.run(ctx, runID, targets, workers, events)
	return events
}

func (r *Runner) run(ctx context.Context, runID string, targets []csvio.Row, workers int, events chan<- Event) {
	defer close(events)

	total := len(targets)
	var processed atomic.Int64

	var mu sync.Mutex
	var failedLines []int
	markFailed := func(line int) {
		mu.Lock()
		failedLines = append(failedLines, line)
		mu.Unlock()
	}

	emitProgress := func() {
		events <- Event{Kind: EventProgress, Current: int(processed.Add(1)), Total: total}
	}

	jobs := make(chan csvio.Row)
	group, groupCtx := errgroup.WithContext(ctx)

	for workerIndex := 0; workerIndex < workers; workerIndex++ {
		worker := workerIndex
		group.Go(func() error {
			for row := range jobs {
				if groupCtx.Err() != nil {
					return nil
				}
				r.judgeRow(groupCtx, worker, row, events, markFailed)
				emitProgress()
			}
			return nil
		})
	}

	feed := func() {
		defer close(jobs)
		for _, row := range targets {
			select {
			case jobs <- row:
			case <-groupCtx.Done():
				return
			}
		}
	}
	feed()

	_ = group.Wait()

	cancelled := ctx.Err() != nil
	sort.Ints(failedLines)

	r.logger.Info("JudgeRunner", "run finished", map[string]interface{}{
		"run_id":    runID,
		"processed": processed.Load(),
		"failed":    len(failedLines),
		"cancelled": cancelled,
	})

	events <- Event{Kind: EventDone, Done: &DoneSummary{
		FailedLines: failedLines,
		Cancelled:   cancelled,
	}}
}

func (r *Runner) judgeRow(ctx context.Context, worker int, row csvio.Row, events chan<- Event, markFailed func(int)) {
	// Rows that failed validation never reach a browser.
	if !row.Runnable() {
		row.Result = csvio.ResultFailed
		markFailed(row.Line)
		events <- Event{Kind: EventRow, Row: row}
		return
	}

	events <- Event{
		Kind:    EventLog,
		Message: fmt.Sprintf("%d行目を判定中: %s %s", row.Line, row.Zipcode, row.Address),
	}

	progress := func(message string) {
		events <- Event{
			Kind:    EventWorkerLog,
			Worker:  worker,
			Message: fmt.Sprintf("%d行目: %s", row.Line, message),
		}
	}

	result, err := r.checker.Check(ctx, row.Zipcode, row.Address, progress)
	if err != nil {
		r.logger.Error("JudgeRunner", err, map[string]interface{}{"line": row.Line})
		events <- Event{
			Kind:    EventLog,
			Message: fmt.Sprintf("%d行目: エラー %v", row.Line, err),
		}
	}

	row.Result = MapResult(result)
	row.Note = ExtractNote(result)
	if row.Result == csvio.ResultFailed {
		markFailed(row.Line)
	}

	events <- Event{Kind: EventRow, Row: row}
}
