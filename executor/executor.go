// Package executor runs Payloads against a chain.MockState through the embedded moveuvm interpreter, translating
// VM-level outcomes into the ExitKind vocabulary the fuzzing loop's feedbacks and objectives consume.
package executor

import (
	"github.com/crytic/movedusa/chain"
	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/observers"
	"github.com/crytic/movedusa/payload"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ExitKind classifies how a run ended.
type ExitKind uint8

const (
	// ExitOk covers a normal return, a Move abort, and running out of instruction budget: none of these are, by
	// themselves, evidence of a harness or VM defect.
	ExitOk ExitKind = iota
	// ExitCrash covers a VM invariant violation or a native fault (division/modulo by zero) unwinding out of the
	// call, standing in for a real Move VM panic escaping its own recover boundary.
	ExitCrash
)

// CoverageMapSize mirrors coverage.MapSize; RunOutcome copies it directly to avoid a package-cycle back-import.
const CoverageMapSize = 1 << 16

// RunOutcome is everything the fuzzing loop's feedbacks and objectives need to know about one run.
type RunOutcome struct {
	Kind        ExitKind
	AbortCode   uint64
	HasAbort    bool
	Path        []uint64
	CauseLoss   bool
	CoverageMap *[CoverageMapSize]byte
}

// ErrUnknownFunction is returned when an EntryFunction payload names a function the published module does not
// export.
var ErrUnknownFunction = errors.New("executor: unknown function")

// ErrArgumentArity is returned when a payload's argument count does not match the target function's parameter
// count.
var ErrArgumentArity = errors.New("executor: argument count mismatch")

// Executor owns a MockState and runs Payloads against it, one at a time. It is not safe for concurrent use; the
// fuzzing loop that owns it is single-threaded by design.
type Executor struct {
	state *chain.MockState

	pcObserver    observers.PcHitCountObserver
	abortObserver observers.AbortCodeObserver
	shiftObserver observers.ShiftOverflowObserver
}

// New constructs an Executor bound to state, which must already have a module published to it. targetAbortCodes,
// if non-empty, restricts which abort codes the AbortCodeObjective treats as interesting.
func New(state *chain.MockState, targetAbortCodes map[uint64]struct{}) *Executor {
	return &Executor{
		state:         state,
		abortObserver: observers.AbortCodeObserver{TargetCodes: targetAbortCodes},
	}
}

// Run decodes p's arguments, executes it against the bound chain state, and returns the resulting RunOutcome. A
// malformed argument blob is not an error from Run's perspective; it is folded into a clean ExitOk with an empty
// path and no abort/coverage effects, matching the harness's policy of never treating a decode failure as
// interesting.
func (e *Executor) Run(p payload.Payload) (RunOutcome, error) {
	module, err := e.state.Module()
	if err != nil {
		return RunOutcome{}, errors.Wrap(err, "run")
	}

	var fn *moveuvm.Function
	var args []*uint256.Int

	switch pl := p.(type) {
	case *payload.EntryFunction:
		f, ok := module.FunctionByName(pl.FunctionName)
		if !ok {
			return RunOutcome{}, errors.Wrapf(ErrUnknownFunction, "%s", pl.FunctionName)
		}
		if len(pl.Args) != len(f.ParamTypes) {
			return RunOutcome{}, errors.Wrapf(ErrArgumentArity, "function %s wants %d args, got %d", pl.FunctionName, len(f.ParamTypes), len(pl.Args))
		}

		fn = f
		args = make([]*uint256.Int, len(pl.Args))
		for i, blob := range pl.Args {
			v, err := moveuvm.DecodeArgument(fn.ParamTypes[i], blob)
			if err != nil {
				// Malformed argument blob: swallow and report a clean, empty-path Ok run.
				return RunOutcome{Kind: ExitOk}, nil
			}
			args[i] = v
		}

	case *payload.Script:
		code, err := moveuvm.DecodeScriptCode(pl.Code)
		if err != nil {
			// Malformed script bytecode: swallow, same policy as a malformed argument blob.
			return RunOutcome{Kind: ExitOk}, nil
		}

		paramTypes := make([]moveuvm.TypeTag, len(pl.Args))
		args = make([]*uint256.Int, len(pl.Args))
		for i, a := range pl.Args {
			v, err := moveuvm.DecodeArgument(a.Tag, a.Value)
			if err != nil {
				return RunOutcome{Kind: ExitOk}, nil
			}
			paramTypes[i] = a.Tag
			args[i] = v
		}
		fn = &moveuvm.Function{Name: "<script>", ParamTypes: paramTypes, Code: code}

	default:
		return RunOutcome{}, errors.Errorf("executor: unrecognized payload type %T", p)
	}

	e.pcObserver.PreExec()
	e.abortObserver.PreExec()
	e.shiftObserver.PreExec()

	baseID := p.FunctionID()
	// path folds baseID in once, ahead of the traced pcs, so coverage.PathID hashes the executing function's
	// identity together with its control-flow trace. Without this, two distinct entry functions that happen to
	// produce the same relative pc sequence (e.g. a shared assert-guard pattern at the same code offset) would
	// hash to the same PathID and collide in the objectives' path-dedup set.
	var path []uint64

	cb := moveuvm.Callbacks{
		OnPC: func(pc uint64) {
			if len(path) == 0 {
				path = append(path, baseID)
			}
			path = append(path, pc)
			e.pcObserver.RecordPC(baseID, pc)
		},
		OnShiftLoss: func() {
			e.shiftObserver.RecordShiftLoss()
		},
	}

	writes, runErr := e.safeRun(module, fn, args, e.state, cb)

	outcome := RunOutcome{
		Path:      path,
		CauseLoss: e.shiftObserver.CauseLoss(),
	}
	mapCopy := e.pcObserver.Map
	outcome.CoverageMap = (*[CoverageMapSize]byte)(&mapCopy)

	switch {
	case runErr == nil:
		e.state.Commit(writes)
		outcome.Kind = ExitOk
	default:
		var abortErr *moveuvm.ErrAbort
		if errors.As(runErr, &abortErr) {
			e.abortObserver.RecordAbort(abortErr.Code)
			outcome.Kind = ExitOk
		} else {
			// Invariant violation, native fault, or stack underflow from a malformed hand-built module all
			// promote to Crash, matching a real Move VM panic escaping unhandled.
			outcome.Kind = ExitCrash
		}
	}

	if code, present := e.abortObserver.LastAbortCode(); present {
		outcome.AbortCode = code
		outcome.HasAbort = true
	}

	return outcome, nil
}

// safeRun invokes the VM interpreter, converting any panic escaping it into ErrInvariantViolation rather than
// letting it unwind out of the fuzzing loop. This is the executor-boundary recovery point standing in for a real
// Move VM's own panic-to-error conversion; moveuvm's interpreter should never itself panic on well-formed input,
// but a hand-assembled or corrupted module can still reach an unguarded index expression.
func (e *Executor) safeRun(module *moveuvm.Module, fn *moveuvm.Function, args []*uint256.Int, state moveuvm.State, cb moveuvm.Callbacks) (writes []moveuvm.PendingWrite, err error) {
	defer func() {
		if r := recover(); r != nil {
			writes = nil
			err = errors.Wrapf(moveuvm.ErrInvariantViolation, "recovered panic: %v", r)
		}
	}()
	return moveuvm.Run(module, fn, args, state, cb)
}
