package trade

import (
	"context"
	"errors"
	"fmt"
)

// UndoLog collects inverse operations for the mutating steps of one invoice
// operation. There is no multi-record transaction to lean on, so every step
// that changes storage pushes its inverse before it runs; on failure the log
// is played back in reverse.
type UndoLog struct {
	steps []undoStep
}

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
	done bool
}

// NewUndoLog creates an empty undo log
func NewUndoLog() *UndoLog {
	return &UndoLog{}
}

// Push records the inverse of the step about to run
func (u *UndoLog) Push(name string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// Compensate plays the log back in reverse. Steps that already succeeded are
// skipped, so a retried compensation never double-restores. All failures are
// reported; failed steps stay pending for a retry.
func (u *UndoLog) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := &u.steps[i]
		if step.done {
			continue
		}
		if err := step.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", step.name, err))
			continue
		}
		step.done = true
	}
	return errors.Join(errs...)
}

// Len returns the number of recorded steps
func (u *UndoLog) Len() int {
	return len(u.steps)
}
