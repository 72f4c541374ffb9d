package fuzzing

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/crytic/movedusa/analysis"
	"github.com/crytic/movedusa/chain"
	"github.com/crytic/movedusa/coverage"
	"github.com/crytic/movedusa/executor"
	"github.com/crytic/movedusa/logging"
	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Config carries the knobs the fuzzer accepts, mirroring the CLI's --module-path/--abi-path/--timeout/--seed/
// --target-abort-code flags one-to-one.
type Config struct {
	// ModulePath is the filesystem path to the compiled module bytes to publish and fuzz.
	ModulePath string
	// ABIPath is a file or directory of entry-function ABI JSON files to seed from.
	ABIPath string
	// Timeout bounds how long the fuzzing loop runs before stopping cleanly. Zero means no deadline; the loop
	// then only stops on SIGINT.
	Timeout time.Duration
	// Seed drives the mutator's PRNG, letting a fuzzing run be replayed deterministically.
	Seed int64
	// TargetAbortCodes, if non-empty, restricts AbortCodeObjective to only the listed Move abort codes.
	TargetAbortCodes map[uint64]struct{}
}

// Fuzzer owns the full single-threaded fuzzing loop: chain state, executor, corpus/solution state, mutator, and
// the feedback/objective set that decides what gets kept.
type Fuzzer struct {
	// SessionID uniquely identifies one fuzzing run, so log lines and reported solutions from concurrent runs
	// against the same module can be told apart.
	SessionID uuid.UUID

	config Config
	logger *logging.Logger

	module   *moveuvm.Module
	state    *chain.MockState
	exec     *executor.Executor
	corpus   *State
	mutator  *Mutator
	feedback *CoverageFeedback

	abortObjective *AbortCodeObjective
	shiftObjective *ShiftOverflowObjective

	Events Events
}

// New constructs a Fuzzer from config, publishing the module at config.ModulePath to a fresh MockState. It does
// not seed the corpus or start the loop; call SeedFromABIs and then Run for that.
func New(config Config, logger *logging.Logger) (*Fuzzer, error) {
	moduleBytes, err := os.ReadFile(config.ModulePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading module file %q", config.ModulePath)
	}
	module, err := moveuvm.DecodeModule(moduleBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding module file %q", config.ModulePath)
	}

	state := chain.NewMockState()
	if err := state.Publish(module); err != nil {
		return nil, errors.Wrap(err, "publishing module")
	}

	corpus := NewState()

	f := &Fuzzer{
		SessionID: uuid.New(),
		config:    config,
		logger:    logger,
		module:    module,
		state:     state,
		exec:      executor.New(state, config.TargetAbortCodes),
		corpus:    corpus,
		mutator:   NewMutator(config.Seed),
		feedback: &CoverageFeedback{
			Cumulative: coverage.NewCumulativeCoverage(),
		},
	}
	f.abortObjective = &AbortCodeObjective{State: corpus}
	f.shiftObjective = &ShiftOverflowObjective{State: corpus}

	f.logger.Info("published module", logging.StructuredLogInfo{
		"session_id":  f.SessionID.String(),
		"module_name": module.Name,
	})

	return f, nil
}

// SeedFromABIs parses every ABI under f.config.ABIPath, synthesizes a default-valued payload per supported ABI,
// and admits each to the corpus unconditionally. ABIs the seeder cannot synthesize a value for are logged and
// skipped rather than treated as fatal.
func (f *Fuzzer) SeedFromABIs() error {
	abis, skippedAtLoad, err := payload.LoadABIs(f.config.ABIPath)
	if err != nil {
		return errors.Wrap(err, "loading ABIs")
	}
	for _, s := range skippedAtLoad {
		f.logger.Warn("skipping ABI with unsupported parameter type", logging.StructuredLogInfo{
			"path":   s.Path,
			"reason": s.Reason,
		})
	}

	seeds, skipped := Seed(abis)
	for _, s := range skipped {
		f.logger.Warn("skipping ABI with unsupported parameter type", logging.StructuredLogInfo{
			"module_name":   s.ABI.ModuleName,
			"function_name": s.ABI.FunctionName,
			"reason":        s.Reason,
		})
	}
	for _, seed := range seeds {
		f.corpus.AddToCorpus(seed)
	}

	totalSkipped := len(skippedAtLoad) + len(skipped)
	f.logger.Info("seeded corpus from ABIs", logging.StructuredLogInfo{"seeded": len(seeds), "skipped": totalSkipped})

	entryNames := make(map[string]struct{}, len(abis))
	for _, a := range abis {
		entryNames[a.FunctionName] = struct{}{}
	}
	for _, finding := range analysis.Analyze(f.module, entryNames) {
		f.logger.Info("static analysis finding", logging.StructuredLogInfo{
			"kind":     finding.Kind.String(),
			"function": finding.Function,
			"detail":   finding.Detail,
		})
	}

	return nil
}

// Run executes the fuzzing loop until ctx is cancelled, the configured timeout elapses, or a SIGINT arrives,
// whichever happens first. Suspension is only ever checked between iterations; a run already dispatched to the
// executor always completes before the loop notices a stop condition.
func (f *Fuzzer) Run(ctx context.Context) error {
	if len(f.corpus.Corpus) == 0 {
		f.logger.Info("corpus is empty, nothing to schedule")
		f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: nil})
		return nil
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	var loopErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-sigCh:
			f.logger.Info("received interrupt, stopping")
			break loop
		default:
		}

		if err := f.step(); err != nil {
			loopErr = err
			break loop
		}
	}

	f.Events.FuzzerStopping.Publish(FuzzerStoppingEvent{Fuzzer: f, Err: loopErr})
	return loopErr
}

// step runs exactly one fuzzing iteration: schedule a corpus entry, mutate a clone of it, execute it, and route
// the outcome through the coverage feedback and both objectives.
func (f *Fuzzer) step() error {
	base, ok := f.corpus.Next()
	if !ok {
		return errors.New("fuzzing: corpus became empty mid-run")
	}

	candidate := base.Clone()
	f.mutator.Mutate(candidate)

	outcome, err := f.exec.Run(candidate)
	if err != nil {
		return errors.Wrap(err, "executing candidate")
	}
	f.corpus.Executions++

	if f.feedback.IsInteresting(outcome) {
		f.corpus.AddToCorpus(candidate)
		f.Events.CorpusAdded.Publish(CorpusAddedEvent{Fuzzer: f, CorpusSize: len(f.corpus.Corpus)})
	}

	if f.abortObjective.IsInteresting(candidate, outcome) {
		f.Events.SolutionFound.Publish(SolutionFoundEvent{Fuzzer: f, Solution: f.corpus.Solutions[len(f.corpus.Solutions)-1]})
	}
	if f.shiftObjective.IsInteresting(candidate, outcome) {
		f.Events.SolutionFound.Publish(SolutionFoundEvent{Fuzzer: f, Solution: f.corpus.Solutions[len(f.corpus.Solutions)-1]})
	}

	if f.corpus.Executions%1000 == 0 {
		f.logger.Info("fuzzing progress", logging.StructuredLogInfo{
			"executions": f.corpus.Executions,
			"corpus":     len(f.corpus.Corpus),
			"solutions":  len(f.corpus.Solutions),
			"coverage":   f.CoverageCount(),
		})
	}

	return nil
}

// Solutions returns every solution found so far.
func (f *Fuzzer) Solutions() []Solution {
	return f.corpus.Solutions
}

// Executions returns the number of runs completed so far.
func (f *Fuzzer) Executions() uint64 {
	return f.corpus.Executions
}

// CoverageCount returns the number of distinct edges observed so far, for progress reporting.
func (f *Fuzzer) CoverageCount() int {
	if cc, ok := f.feedback.Cumulative.(*coverage.CumulativeCoverage); ok {
		return cc.Count()
	}
	return 0
}
