// Package observers defines the instrumentation sinks the executor populates during a run: coverage hit counts,
// the last Move abort code, and whether any left-shift lost bits. Each observer follows the same lifecycle: PreExec
// resets it to a neutral state before a run begins, the executor calls the appropriate recording methods during the
// run via callbacks scoped to that single call, and its accessors are read once the run has ended.
package observers

import "github.com/crytic/movedusa/coverage"

// PcHitCountObserver accumulates one run's edge coverage into an EdgeMap, to be merged into cumulative coverage
// once the run completes.
type PcHitCountObserver struct {
	Map     coverage.EdgeMap
	prevLoc uint64
}

// PreExec resets the observer to a neutral state before a run begins.
func (o *PcHitCountObserver) PreExec() {
	o.Map.Reset()
	o.prevLoc = 0
}

// RecordPC hits the edge bucket for pc against baseID, threading the observer's own prevLoc history.
func (o *PcHitCountObserver) RecordPC(baseID, pc uint64) {
	idx, next := coverage.EdgeIndex(baseID, pc, o.prevLoc)
	o.Map.HitEdge(idx)
	o.prevLoc = next
}

// AbortCodeObserver records the abort code, if any, that ended the run with a Move abort.
type AbortCodeObserver struct {
	// TargetCodes, if non-empty, restricts which observed codes are considered a hit at all; an empty set means
	// any abort code is of interest.
	TargetCodes map[uint64]struct{}

	last    uint64
	present bool
}

// PreExec resets the observer to "no abort observed" before a run begins.
func (o *AbortCodeObserver) PreExec() {
	o.last = 0
	o.present = false
}

// RecordAbort is called by the executor when a run ends with a Move abort carrying code.
func (o *AbortCodeObserver) RecordAbort(code uint64) {
	o.last = code
	o.present = true
}

// LastAbortCode returns the observed abort code and whether one is present, filtered by TargetCodes if set.
func (o *AbortCodeObserver) LastAbortCode() (uint64, bool) {
	if !o.present {
		return 0, false
	}
	if len(o.TargetCodes) > 0 {
		if _, ok := o.TargetCodes[o.last]; !ok {
			return 0, false
		}
	}
	return o.last, true
}

// ShiftOverflowObserver records whether any OpShl during the run truncated away a set bit.
type ShiftOverflowObserver struct {
	causeLoss bool
}

// PreExec resets the observer to false before a run begins.
func (o *ShiftOverflowObserver) PreExec() {
	o.causeLoss = false
}

// RecordShiftLoss is called by the executor whenever a left shift within the run loses a set bit.
func (o *ShiftOverflowObserver) RecordShiftLoss() {
	o.causeLoss = true
}

// CauseLoss reports whether any left shift in the run lost a set bit.
func (o *ShiftOverflowObserver) CauseLoss() bool {
	return o.causeLoss
}
