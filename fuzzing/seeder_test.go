package fuzzing

import (
	"testing"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSynthesizesDefaultsPerType(t *testing.T) {
	abis := []payload.ParsedABI{
		{
			ModuleName:   "m",
			FunctionName: "f",
			Parameters: []moveuvm.TypeTag{
				moveuvm.TypeBool, moveuvm.TypeU8, moveuvm.TypeU64, moveuvm.TypeAddress, moveuvm.TypeU8Vector,
			},
		},
	}

	seeds, skipped := Seed(abis)
	require.Len(t, seeds, 1)
	assert.Empty(t, skipped)

	ef, ok := seeds[0].(*payload.EntryFunction)
	require.True(t, ok)
	require.Len(t, ef.Args, 5)
	assert.Equal(t, []byte{0}, ef.Args[0])
	assert.Equal(t, []byte{0}, ef.Args[1])
	assert.Equal(t, make([]byte, 8), ef.Args[2])
	assert.Equal(t, make([]byte, 32), ef.Args[3])
	assert.Equal(t, []byte{0}, ef.Args[4]) // uleb128(0) is a single zero byte
}

func TestSeedSkipsUnsupportedType(t *testing.T) {
	abis := []payload.ParsedABI{
		{ModuleName: "m", FunctionName: "f", Parameters: []moveuvm.TypeTag{moveuvm.TypeUnsupported}},
	}

	seeds, skipped := Seed(abis)
	assert.Empty(t, seeds)
	require.Len(t, skipped, 1)
	assert.Equal(t, "f", skipped[0].ABI.FunctionName)
}
