package fuzzing

import (
	"testing"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateEntryFunctionPreservesIdentityAndArity(t *testing.T) {
	m := NewMutator(1)
	ef := &payload.EntryFunction{
		ModuleAddress: moveuvm.Address{1},
		ModuleName:    "m",
		FunctionName:  "f",
		Args:          [][]byte{{1, 2, 3}, {4, 5}},
	}

	result := m.Mutate(ef)
	require.Equal(t, Mutated, result)
	assert.Equal(t, "m", ef.ModuleName)
	assert.Equal(t, "f", ef.FunctionName)
	assert.Len(t, ef.Args, 2)
}

func TestMutateEntryFunctionSkipsZeroArity(t *testing.T) {
	m := NewMutator(1)
	ef := &payload.EntryFunction{FunctionName: "f"}
	assert.Equal(t, Skipped, m.Mutate(ef))
}

func TestMutateScriptPreservesTag(t *testing.T) {
	m := NewMutator(2)
	s := &payload.Script{
		Code: []byte{1, 2},
		Args: []payload.ScriptArg{
			{Tag: moveuvm.TypeU64, Value: make([]byte, 8)},
			{Tag: moveuvm.TypeAddress, Value: make([]byte, 32)},
		},
	}

	for i := 0; i < 20; i++ {
		require.Equal(t, Mutated, m.Mutate(s))
	}

	for _, arg := range s.Args {
		switch arg.Tag {
		case moveuvm.TypeU64:
			assert.Len(t, arg.Value, 8)
		case moveuvm.TypeAddress:
			assert.Len(t, arg.Value, 32)
		}
	}
}

func TestMutateByteVectorGrowsFromEmpty(t *testing.T) {
	m := NewMutator(3)
	out := m.mutateByteVector(nil)
	assert.NotEmpty(t, out)
}

func TestResizeByteVectorPreservesSharedPrefix(t *testing.T) {
	m := NewMutator(4)
	original := []byte{10, 20, 30, 40, 50}

	for i := 0; i < 50; i++ {
		out := m.resizeByteVector(original)
		n := len(out)
		if n > len(original) {
			n = len(original)
		}
		assert.Equal(t, original[:n], out[:n])
	}
}

func TestResizeByteVectorNeverExceedsMaxArgBytes(t *testing.T) {
	m := NewMutator(5)
	b := make([]byte, MaxArgBytes)

	for i := 0; i < 20; i++ {
		b = m.resizeByteVector(b)
		assert.LessOrEqual(t, len(b), MaxArgBytes)
	}
}

func TestWindowReplaceByteVectorPreservesLength(t *testing.T) {
	m := NewMutator(6)
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	out := m.windowReplaceByteVector(original)
	assert.Len(t, out, len(original))
	assert.Equal(t, original, []byte{1, 2, 3, 4, 5, 6, 7, 8}, "input must not be mutated in place")
}

func TestWindowReplaceByteVectorChangesSomeByteEventually(t *testing.T) {
	m := NewMutator(7)
	original := make([]byte, 32)

	changed := false
	for i := 0; i < 50 && !changed; i++ {
		out := m.windowReplaceByteVector(original)
		for j := range out {
			if out[j] != original[j] {
				changed = true
				break
			}
		}
	}
	assert.True(t, changed)
}
