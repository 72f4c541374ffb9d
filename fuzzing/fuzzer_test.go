package fuzzing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crytic/movedusa/logging"
	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// writeShiftOverflowFixture builds a single-function module whose "check" entry function left-shifts its u8
// argument by 4 bits without masking, matching the shift-truncation scenario the executor's observers exist to
// catch, and writes both the module and its ABI to dir.
func writeShiftOverflowFixture(t *testing.T, dir string) (modulePath, abiPath string) {
	t.Helper()

	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "shifty")
	b.Function("check", moveuvm.TypeU8).LoadArg(0).PushConst(4).Shl(8).Pop().Return().End()
	module := b.Build()

	modulePath = filepath.Join(dir, "module.mv")
	require.NoError(t, os.WriteFile(modulePath, moveuvm.Encode(module), 0o600))

	abi := payload.ABI{
		ModuleAddress: "0x0",
		ModuleName:    "shifty",
		FunctionName:  "check",
		Parameters:    []string{"u8"},
	}
	raw, err := json.Marshal(abi)
	require.NoError(t, err)

	abiPath = filepath.Join(dir, "check.json")
	require.NoError(t, os.WriteFile(abiPath, raw, 0o600))

	return modulePath, abiPath
}

func TestFuzzerDiscoversShiftOverflow(t *testing.T) {
	dir := t.TempDir()
	modulePath, abiPath := writeShiftOverflowFixture(t, dir)

	logger := logging.NewLogger(zerolog.Disabled, false)
	fz, err := New(Config{ModulePath: modulePath, ABIPath: abiPath, Seed: 1}, logger)
	require.NoError(t, err)
	require.NoError(t, fz.SeedFromABIs())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = fz.Run(ctx)

	found := false
	for _, sol := range fz.Solutions() {
		if sol.Objective == "shift_overflow" {
			found = true
		}
	}
	require.True(t, found, "expected the mutator to eventually produce a byte whose shift truncates a set bit")
}

func TestFuzzerRunStopsCleanlyOnEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	modulePath, _ := writeShiftOverflowFixture(t, dir)

	logger := logging.NewLogger(zerolog.Disabled, false)
	fz, err := New(Config{ModulePath: modulePath, ABIPath: dir, Seed: 1}, logger)
	require.NoError(t, err)

	err = fz.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, fz.Executions())
}

func TestSessionIDIsUniquePerFuzzer(t *testing.T) {
	dir := t.TempDir()
	modulePath, abiPath := writeShiftOverflowFixture(t, dir)
	logger := logging.NewLogger(zerolog.Disabled, false)

	f1, err := New(Config{ModulePath: modulePath, ABIPath: abiPath, Seed: 1}, logger)
	require.NoError(t, err)
	f2, err := New(Config{ModulePath: modulePath, ABIPath: abiPath, Seed: 1}, logger)
	require.NoError(t, err)

	require.NotEqual(t, f1.SessionID, f2.SessionID)
}
