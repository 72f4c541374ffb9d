package moveuvm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullState struct{}

func (nullState) Get(addr Address, key uint64) (*uint256.Int, bool) { return nil, false }

func TestRunAddReturn(t *testing.T) {
	b := NewBuilder(ZeroAddress, "m")
	fn := b.Function("add", TypeU64, TypeU64).
		LoadArg(0).LoadArg(1).Add().Pop().Return().End().Build().Functions[0]

	writes, err := Run(&Module{Functions: []Function{fn}}, &fn,
		[]*uint256.Int{uint256.NewInt(2), uint256.NewInt(3)}, nullState{}, Callbacks{})
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestRunAbort(t *testing.T) {
	b := NewBuilder(ZeroAddress, "m")
	fn := b.Function("check", TypeU64).
		PushConst(42).
		LoadArg(0).PushConst(0).Eq().
		AbortIfFalse().
		Return().End().Build().Functions[0]

	_, err := Run(&Module{Functions: []Function{fn}}, &fn, []*uint256.Int{uint256.NewInt(0)}, nullState{}, Callbacks{})
	require.NoError(t, err)

	_, err = Run(&Module{Functions: []Function{fn}}, &fn, []*uint256.Int{uint256.NewInt(1)}, nullState{}, Callbacks{})
	require.Error(t, err)
	var abortErr *ErrAbort
	require.ErrorAs(t, err, &abortErr)
	assert.EqualValues(t, 42, abortErr.Code)
}

func TestRunDivisionByZeroFaults(t *testing.T) {
	b := NewBuilder(ZeroAddress, "m")
	fn := b.Function("div", TypeU64, TypeU64).
		LoadArg(0).LoadArg(1).Div().Pop().Return().End().Build().Functions[0]

	_, err := Run(&Module{Functions: []Function{fn}}, &fn,
		[]*uint256.Int{uint256.NewInt(10), uint256.NewInt(0)}, nullState{}, Callbacks{})
	require.ErrorIs(t, err, ErrNativeFault)
}

func TestRunShiftOverflowCallback(t *testing.T) {
	b := NewBuilder(ZeroAddress, "m")
	fn := b.Function("shift", TypeU8).
		LoadArg(0).PushConst(4).Shl(8).Pop().Return().End().Build().Functions[0]

	var lossCount int
	cb := Callbacks{OnShiftLoss: func() { lossCount++ }}

	_, err := Run(&Module{Functions: []Function{fn}}, &fn, []*uint256.Int{uint256.NewInt(0xFF)}, nullState{}, cb)
	require.NoError(t, err)
	assert.Equal(t, 1, lossCount)

	lossCount = 0
	_, err = Run(&Module{Functions: []Function{fn}}, &fn, []*uint256.Int{uint256.NewInt(0x01)}, nullState{}, cb)
	require.NoError(t, err)
	assert.Equal(t, 0, lossCount)
}

func TestEncodeDecodeModuleRoundTrip(t *testing.T) {
	b := NewBuilder(ZeroAddress, "roundtrip")
	b.Function("f", TypeU64).LoadArg(0).Return().End()
	module := b.Build()

	decoded, err := DecodeModule(Encode(module))
	require.NoError(t, err)
	assert.Equal(t, module.Name, decoded.Name)
	require.Len(t, decoded.Functions, 1)
	assert.Equal(t, module.Functions[0].Name, decoded.Functions[0].Name)
	assert.Equal(t, module.Functions[0].ParamTypes, decoded.Functions[0].ParamTypes)
	assert.Equal(t, module.Functions[0].Code, decoded.Functions[0].Code)
}

func TestDecodeModuleBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0, 0, 0, 0})
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestEncodeDecodeModulePreservesMinVMVersion(t *testing.T) {
	b := NewBuilder(ZeroAddress, "versioned").RequireVMVersion(">= 1.0.0")
	b.Function("f").Return().End()
	module := b.Build()

	decoded, err := DecodeModule(Encode(module))
	require.NoError(t, err)
	assert.Equal(t, ">= 1.0.0", decoded.MinVMVersion)
}

func TestEncodeDecodeScriptCodeRoundTrip(t *testing.T) {
	code := NewScriptBuilder().LoadArg(0).PushConst(9).Add().Pop().Return().Code()

	decoded, err := DecodeScriptCode(EncodeInstructions(code))
	require.NoError(t, err)
	assert.Equal(t, code, decoded)
}

func TestDecodeScriptCodeTruncatedOperand(t *testing.T) {
	_, err := DecodeScriptCode([]byte{byte(OpLoadArg)})
	require.ErrorIs(t, err, ErrTruncated)
}
