package fuzzing

import (
	"github.com/crytic/movedusa/coverage"
	"github.com/crytic/movedusa/executor"
	"github.com/crytic/movedusa/payload"
)

// CoverageFeedback decides whether a run's edge map introduced coverage never seen before across the whole
// fuzzing run, admitting the run's payload to the corpus when it did.
type CoverageFeedback struct {
	Cumulative coverage.Cumulative
}

// IsInteresting reports whether outcome's coverage map set at least one bit CumulativeCoverage had not already
// recorded. Coverage novelty and solution-path novelty (below) are deliberately independent notions: a run can be
// coverage-novel without being a solution, and a solution's path can repeat while its bytes differ.
func (f *CoverageFeedback) IsInteresting(outcome executor.RunOutcome) bool {
	if outcome.CoverageMap == nil {
		return false
	}
	edgeMap := coverage.EdgeMap(*outcome.CoverageMap)
	return f.Cumulative.Merge(&edgeMap)
}

// AbortCodeObjective admits a payload to Solutions the first time its execution path produces an interesting
// Move abort. "Interesting" means either no target-code filter is configured, or the observed code is in the
// configured set; that filtering already happened in observers.AbortCodeObserver, so this objective only needs
// to check RunOutcome.HasAbort and perform the shared path-dedup check.
type AbortCodeObjective struct {
	State *State
}

// IsInteresting checks outcome and, if it is a novel-path abort, records the solution and returns true. Any
// Crash-kind outcome is always interesting once its path is novel, since a crash by definition escaped normal
// abort handling.
func (o *AbortCodeObjective) IsInteresting(p payload.Payload, outcome executor.RunOutcome) bool {
	if outcome.Kind == executor.ExitCrash {
		pathID := coverage.PathID(outcome.Path)
		if !o.State.MarkPathSeen(pathID) {
			return false
		}
		o.State.AddSolution(Solution{Payload: p.Clone(), Objective: "crash"})
		return true
	}

	if !outcome.HasAbort {
		return false
	}
	pathID := coverage.PathID(outcome.Path)
	if !o.State.MarkPathSeen(pathID) {
		return false
	}
	o.State.AddSolution(Solution{Payload: p.Clone(), Objective: "abort_code", AbortCode: outcome.AbortCode, HasAbort: true})
	return true
}

// ShiftOverflowObjective admits a payload to Solutions the first time its execution path performs a left shift
// that truncates away a set bit, subject to the same shared path-dedup as AbortCodeObjective.
type ShiftOverflowObjective struct {
	State *State
}

// IsInteresting checks outcome and, if it is a novel-path lossy shift, records the solution and returns true.
func (o *ShiftOverflowObjective) IsInteresting(p payload.Payload, outcome executor.RunOutcome) bool {
	if !outcome.CauseLoss {
		return false
	}
	pathID := coverage.PathID(outcome.Path)
	if !o.State.MarkPathSeen(pathID) {
		return false
	}
	o.State.AddSolution(Solution{Payload: p.Clone(), Objective: "shift_overflow"})
	return true
}
