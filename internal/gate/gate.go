// Package gate defines the validation gates a release candidate must
// pass and the loops that sequence them. A gate runs an external
// collaborator and reduces it to a pass/fail result; gates never mutate
// release state.
package gate

import (
	"context"
	"time"
)

// Status is the outcome of one gate invocation.
type Status int

const (
	// StatusPassed means the gate's collaborator signalled success.
	StatusPassed Status = iota
	// StatusFailed means the collaborator ran and signalled failure.
	StatusFailed
	// StatusErrored means the gate could not produce a verdict: the
	// collaborator could not be invoked, or its report was malformed.
	// Errored counts as a failure for sequencing purposes.
	StatusErrored
)

// String returns the human-readable form of the status.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Result is produced once per gate invocation and consumed immediately
// by the sequencing loop. It is never persisted.
type Result struct {
	// Gate is the name of the gate that produced this result.
	Gate string
	// Status is the verdict.
	Status Status
	// Detail is a short operator-facing elaboration (issue counts,
	// summary lines). May be empty.
	Detail string
	// Output is the collaborator's captured stdout/stderr, surfaced to
	// the operator but never parsed for decisions.
	Output []byte
	// Err is set when Status is StatusErrored.
	Err error
	// Duration is how long the gate took.
	Duration time.Duration
}

// Passed reports whether the gate cleared.
func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

// Gate is a single pass/fail validation step.
type Gate interface {
	// Name identifies the gate in reports (e.g. "lint", "unit-tests").
	Name() string

	// Run executes the gate against the current working tree. Failures
	// are expressed through the Result, never by panicking.
	Run(ctx context.Context) Result
}

// Observer is notified as gates run, so the caller can emit status
// lines while a sequence is in flight. Either callback may be nil.
type Observer struct {
	GateStarted  func(name string)
	GateFinished func(res Result)
}

func (o Observer) started(name string) {
	if o.GateStarted != nil {
		o.GateStarted(name)
	}
}

func (o Observer) finished(res Result) {
	if o.GateFinished != nil {
		o.GateFinished(res)
	}
}

// RunFailFast runs gates in order and stops at the first gate that does
// not pass. It returns the results of every gate that ran and true when
// all gates passed. Gates after the first failure are never invoked.
func RunFailFast(ctx context.Context, gates []Gate, obs Observer) ([]Result, bool) {
	results := make([]Result, 0, len(gates))
	for _, g := range gates {
		if err := ctx.Err(); err != nil {
			res := Result{Gate: g.Name(), Status: StatusErrored, Err: err}
			obs.finished(res)
			return append(results, res), false
		}
		obs.started(g.Name())
		res := g.Run(ctx)
		obs.finished(res)
		results = append(results, res)
		if !res.Passed() {
			return results, false
		}
	}
	return results, true
}

// RunAll runs every gate regardless of failures and reports whether all
// of them passed. Used where isolation between checks matters more than
// early exit.
func RunAll(ctx context.Context, gates []Gate, obs Observer) ([]Result, bool) {
	results := make([]Result, 0, len(gates))
	ok := true
	for _, g := range gates {
		obs.started(g.Name())
		res := g.Run(ctx)
		obs.finished(res)
		results = append(results, res)
		if !res.Passed() {
			ok = false
		}
	}
	return results, ok
}
