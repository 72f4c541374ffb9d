// Package fuzzing implements the coverage-guided loop: seeding an initial corpus from ABIs, scheduling and
// mutating corpus entries, running them through the executor, and admitting novel or crashing inputs to the
// Corpus or Solutions sets.
package fuzzing

import (
	"fmt"

	"github.com/crytic/movedusa/logging"
	"github.com/crytic/movedusa/payload"
)

// CorpusEntry is one payload retained because it introduced coverage never seen before it was added.
type CorpusEntry struct {
	Payload payload.Payload
}

// Solution is one payload retained because it triggered an objective (an abort matching the target filter, or a
// lossy left shift) along a control-flow path never recorded as a solution before.
type Solution struct {
	Payload   payload.Payload
	Objective string
	AbortCode uint64
	HasAbort  bool
}

// Log returns a logging.LogBuffer describing s, for the reporting logger to format for console or file.
func (s Solution) Log() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append(fmt.Sprintf("objective: %s\n", s.Objective))
	switch p := s.Payload.(type) {
	case *payload.EntryFunction:
		buffer.Append(fmt.Sprintf("payload: entry function %s::%s, %d arg(s)\n", p.ModuleName, p.FunctionName, len(p.Args)))
	case *payload.Script:
		buffer.Append(fmt.Sprintf("payload: script, %d byte(s), %d arg(s)\n", len(p.Code), len(p.Args)))
	}
	if s.HasAbort {
		buffer.Append(fmt.Sprintf("abort code: %d\n", s.AbortCode))
	}
	return buffer
}

// State holds everything the fuzzing loop accumulates across iterations: the corpus of coverage-novel inputs, the
// solutions found so far, and the set of execution paths already credited to a solution. It is single-threaded by
// design, matching the executor it drives; nothing here is safe for concurrent mutation.
type State struct {
	Corpus       []CorpusEntry
	Solutions    []Solution
	seenPaths    map[uint64]struct{}
	scheduleNext int
	Executions   uint64
}

// NewState returns an empty fuzzing State.
func NewState() *State {
	return &State{seenPaths: make(map[uint64]struct{})}
}

// AddToCorpus appends p as a new coverage-novel corpus entry.
func (s *State) AddToCorpus(p payload.Payload) {
	s.Corpus = append(s.Corpus, CorpusEntry{Payload: p})
}

// MarkPathSeen records pathID as credited to a solution, returning true if this is the first time it has been
// seen. Both AbortCodeObjective and ShiftOverflowObjective consult this same set, so a single path can produce at
// most one Solutions entry regardless of how many objectives fire for it.
func (s *State) MarkPathSeen(pathID uint64) bool {
	if _, ok := s.seenPaths[pathID]; ok {
		return false
	}
	s.seenPaths[pathID] = struct{}{}
	return true
}

// AddSolution appends sol to the solution set. Callers must have already confirmed novelty via MarkPathSeen.
func (s *State) AddSolution(sol Solution) {
	s.Solutions = append(s.Solutions, sol)
}

// Next implements round-robin scheduling over the corpus: it returns the next entry and advances the cursor,
// wrapping back to the start once every entry has been visited once.
func (s *State) Next() (payload.Payload, bool) {
	if len(s.Corpus) == 0 {
		return nil, false
	}
	entry := s.Corpus[s.scheduleNext%len(s.Corpus)]
	s.scheduleNext++
	return entry.Payload, true
}
