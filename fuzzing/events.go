package fuzzing

import "github.com/crytic/movedusa/events"

// CorpusAddedEvent is published whenever a run's coverage is judged novel and its payload is admitted to the
// corpus.
type CorpusAddedEvent struct {
	Fuzzer     *Fuzzer
	CorpusSize int
}

// SolutionFoundEvent is published whenever a run triggers an objective and is admitted to Solutions.
type SolutionFoundEvent struct {
	Fuzzer   *Fuzzer
	Solution Solution
}

// FuzzerStoppingEvent is published once, when the fuzzing loop is about to return, whether due to a deadline, a
// SIGINT, or an internal error.
type FuzzerStoppingEvent struct {
	Fuzzer *Fuzzer
	Err    error
}

// Events groups the EventEmitters a Fuzzer publishes to, giving a CLI or test harness a way to observe progress
// without the fuzzing loop itself doing any I/O.
type Events struct {
	CorpusAdded    events.EventEmitter[CorpusAddedEvent]
	SolutionFound  events.EventEmitter[SolutionFoundEvent]
	FuzzerStopping events.EventEmitter[FuzzerStoppingEvent]
}
