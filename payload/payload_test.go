package payload

import (
	"testing"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionIDDeterministic(t *testing.T) {
	ef1 := &EntryFunction{ModuleAddress: moveuvm.ZeroAddress, ModuleName: "m", FunctionName: "f"}
	ef2 := &EntryFunction{ModuleAddress: moveuvm.ZeroAddress, ModuleName: "m", FunctionName: "f"}
	assert.Equal(t, ef1.FunctionID(), ef2.FunctionID())

	ef3 := &EntryFunction{ModuleAddress: moveuvm.ZeroAddress, ModuleName: "m", FunctionName: "g"}
	assert.NotEqual(t, ef1.FunctionID(), ef3.FunctionID())
}

func TestEntryFunctionRoundTrip(t *testing.T) {
	original := &EntryFunction{
		ModuleAddress: moveuvm.Address{1, 2, 3},
		ModuleName:    "coin",
		FunctionName:  "transfer",
		TypeArgs:      []string{"0x1::aptos_coin::AptosCoin"},
		Args:          [][]byte{{1, 2, 3}, {0, 0, 0, 0, 0, 0, 0, 5}},
	}

	b, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(b)
	require.NoError(t, err)

	got, ok := decoded.(*EntryFunction)
	require.True(t, ok)
	assert.Equal(t, original, got)
}

func TestScriptRoundTrip(t *testing.T) {
	original := &Script{
		Code:     []byte{0xde, 0xad, 0xbe, 0xef},
		TypeArgs: nil,
		Args: []ScriptArg{
			{Tag: moveuvm.TypeU64, Value: []byte{1, 0, 0, 0, 0, 0, 0, 0}},
			{Tag: moveuvm.TypeBool, Value: []byte{1}},
		},
	}

	b, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(b)
	require.NoError(t, err)

	got, ok := decoded.(*Script)
	require.True(t, ok)
	assert.Equal(t, original, got)
}

func TestCloneIsIndependent(t *testing.T) {
	original := &EntryFunction{Args: [][]byte{{1, 2, 3}}}
	cloned := original.Clone().(*EntryFunction)
	cloned.Args[0][0] = 0xFF
	assert.Equal(t, byte(1), original.Args[0][0])
}

func TestResolveTypeTagRejectsUnknown(t *testing.T) {
	_, ok := resolveTypeTag("Coin<T>")
	assert.False(t, ok)
}

func TestParseAbiSkipsUnsupportedParameter(t *testing.T) {
	a := ABI{
		ModuleAddress: "0x1",
		ModuleName:    "m",
		FunctionName:  "f",
		Parameters:    []string{"u64", "Coin<T>"},
	}
	_, ok, err := a.Parse()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseAbiZeroAddressDefault(t *testing.T) {
	a := ABI{ModuleAddress: "", ModuleName: "m", FunctionName: "f"}
	parsed, ok, err := a.Parse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, moveuvm.ZeroAddress, parsed.ModuleAddress)
}
