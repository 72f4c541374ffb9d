package executor

import (
	"testing"

	"github.com/crytic/movedusa/chain"
	"github.com/crytic/movedusa/coverage"
	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutorWithModule(t *testing.T, build func(*moveuvm.Builder)) (*Executor, *chain.MockState) {
	t.Helper()
	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "target")
	build(b)
	module := b.Build()

	state := chain.NewMockState()
	require.NoError(t, state.Publish(module))
	return New(state, nil), state
}

func TestRunNormalReturnIsOk(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("noop").Return().End()
	})

	outcome, err := exec.Run(&payload.EntryFunction{FunctionName: "noop"})
	require.NoError(t, err)
	assert.Equal(t, ExitOk, outcome.Kind)
	assert.False(t, outcome.HasAbort)
}

func TestRunAbortCodeObservedAndFiltered(t *testing.T) {
	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "target")
	b.Function("always_abort").PushConst(99).Abort().End()
	module := b.Build()

	state := chain.NewMockState()
	require.NoError(t, state.Publish(module))

	// No filter: any abort code is observed.
	exec := New(state, nil)
	outcome, err := exec.Run(&payload.EntryFunction{FunctionName: "always_abort"})
	require.NoError(t, err)
	assert.Equal(t, ExitOk, outcome.Kind)
	require.True(t, outcome.HasAbort)
	assert.EqualValues(t, 99, outcome.AbortCode)

	// A filter that excludes 99 makes the abort unobserved.
	state2 := chain.NewMockState()
	require.NoError(t, state2.Publish(module))
	execFiltered := New(state2, map[uint64]struct{}{1: {}})
	outcome2, err := execFiltered.Run(&payload.EntryFunction{FunctionName: "always_abort"})
	require.NoError(t, err)
	assert.False(t, outcome2.HasAbort)
}

func TestRunShiftOverflowObserved(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("shift", moveuvm.TypeU8).LoadArg(0).PushConst(4).Shl(8).Pop().Return().End()
	})

	outcome, err := exec.Run(&payload.EntryFunction{FunctionName: "shift", Args: [][]byte{{0xFF}}})
	require.NoError(t, err)
	assert.True(t, outcome.CauseLoss)
	assert.NotEmpty(t, outcome.Path)
}

func TestRunPathIDDistinguishesFunctionsWithIdenticalBytecode(t *testing.T) {
	// Two distinct entry functions whose code sections are byte-identical (e.g. a shared assert-guard pattern at
	// the same offset) must not collapse to the same PathID, since the objectives' path-dedup treats a repeat
	// PathID as "already seen this bug".
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("guard_a").PushConst(1).Abort().End()
		b.Function("guard_b").PushConst(1).Abort().End()
	})

	outcomeA, err := exec.Run(&payload.EntryFunction{FunctionName: "guard_a"})
	require.NoError(t, err)
	outcomeB, err := exec.Run(&payload.EntryFunction{FunctionName: "guard_b"})
	require.NoError(t, err)

	assert.NotEqual(t, coverage.PathID(outcomeA.Path), coverage.PathID(outcomeB.Path))
}

func TestRunInvariantViolationIsCrash(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("bad").InvariantViolation().End()
	})

	outcome, err := exec.Run(&payload.EntryFunction{FunctionName: "bad"})
	require.NoError(t, err)
	assert.Equal(t, ExitCrash, outcome.Kind)
}

func TestRunMalformedArgumentSwallowedCleanly(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("f", moveuvm.TypeU64).LoadArg(0).Pop().Return().End()
	})

	outcome, err := exec.Run(&payload.EntryFunction{FunctionName: "f", Args: [][]byte{{1, 2, 3}}})
	require.NoError(t, err)
	assert.Equal(t, ExitOk, outcome.Kind)
	assert.Empty(t, outcome.Path)
}

func TestRunUnknownFunction(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("real").Return().End()
	})

	_, err := exec.Run(&payload.EntryFunction{FunctionName: "missing"})
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRunExecutesScriptBytecode(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("noop").Return().End()
	})

	code := moveuvm.EncodeInstructions(moveuvm.NewScriptBuilder().
		LoadArg(0).PushConst(1).Add().Pop().Return().Code())

	arg := []byte{41, 0, 0, 0, 0, 0, 0, 0} // u64 little-endian

	outcome, err := exec.Run(&payload.Script{
		Code: code,
		Args: []payload.ScriptArg{{Tag: moveuvm.TypeU64, Value: arg}},
	})
	require.NoError(t, err)
	assert.Equal(t, ExitOk, outcome.Kind)
	assert.NotEmpty(t, outcome.Path)
}

func TestRunMalformedScriptSwallowedCleanly(t *testing.T) {
	exec, _ := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("noop").Return().End()
	})

	outcome, err := exec.Run(&payload.Script{Code: []byte{byte(moveuvm.OpLoadArg)}})
	require.NoError(t, err)
	assert.Equal(t, ExitOk, outcome.Kind)
	assert.Empty(t, outcome.Path)
}

func TestRunCommitsStateOnlyOnSuccess(t *testing.T) {
	exec, state := newExecutorWithModule(t, func(b *moveuvm.Builder) {
		b.Function("write_then_abort", moveuvm.TypeBool).
			PushConst(7).SetState(0).
			PushConst(1).LoadArg(0).AbortIfFalse().
			Return().End()
	})

	// arg false (zero) makes AbortIfFalse abort after the write was buffered, so nothing commits.
	_, err := exec.Run(&payload.EntryFunction{FunctionName: "write_then_abort", Args: [][]byte{{0}}})
	require.NoError(t, err)
	_, ok := state.Get(moveuvm.ZeroAddress, 0)
	require.False(t, ok)

	// arg true (nonzero) means AbortIfFalse's condition is nonzero, so it does not abort, and the write commits.
	_, err = exec.Run(&payload.EntryFunction{FunctionName: "write_then_abort", Args: [][]byte{{1}}})
	require.NoError(t, err)
	v, ok := state.Get(moveuvm.ZeroAddress, 0)
	require.True(t, ok)
	assert.EqualValues(t, 7, v.Uint64())
}
