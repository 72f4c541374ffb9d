package fuzzing

import (
	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
)

// SkippedABI records one ABI the seeder declined to synthesize a payload for, together with why, so the caller
// can log and count skips rather than silently dropping coverage of the ABI set.
type SkippedABI struct {
	ABI    payload.ParsedABI
	Reason string
}

// Seed synthesizes one minimal default-valued EntryFunction payload per ABI in abis. An ABI whose parameters were
// already resolved to TypeUnsupported by payload.ABI.Parse would have been dropped before reaching here; Seed
// additionally skips any ABI whose default-argument bytes it cannot construct, returning it in skipped instead of
// failing the whole seeding pass.
func Seed(abis []payload.ParsedABI) (seeds []payload.Payload, skipped []SkippedABI) {
	for _, abi := range abis {
		args := make([][]byte, 0, len(abi.Parameters))
		ok := true
		for _, tag := range abi.Parameters {
			blob, supported := defaultArgBytes(tag)
			if !supported {
				ok = false
				break
			}
			args = append(args, blob)
		}
		if !ok {
			skipped = append(skipped, SkippedABI{ABI: abi, Reason: "unsupported parameter type"})
			continue
		}

		seeds = append(seeds, &payload.EntryFunction{
			ModuleAddress: abi.ModuleAddress,
			ModuleName:    abi.ModuleName,
			FunctionName:  abi.FunctionName,
			TypeArgs:      append([]string(nil), abi.TypeParameters...),
			Args:          args,
		})
	}
	return seeds, skipped
}

// defaultArgBytes returns the BCS-encoded zero/empty value for tag: false for bool, 0 for every integer width,
// the zero address for address, and an empty (zero-length, uleb128-prefixed) vector for vector<u8>. Any other tag
// is unsupported.
func defaultArgBytes(tag moveuvm.TypeTag) ([]byte, bool) {
	switch tag {
	case moveuvm.TypeBool:
		return []byte{0}, true
	case moveuvm.TypeU8:
		return []byte{0}, true
	case moveuvm.TypeU16:
		return []byte{0, 0}, true
	case moveuvm.TypeU32:
		return []byte{0, 0, 0, 0}, true
	case moveuvm.TypeU64:
		return make([]byte, 8), true
	case moveuvm.TypeU128:
		return make([]byte, 16), true
	case moveuvm.TypeU256:
		return make([]byte, 32), true
	case moveuvm.TypeAddress:
		return make([]byte, 32), true
	case moveuvm.TypeU8Vector:
		return moveuvm.EncodeUleb128(nil, 0), true
	default:
		return nil, false
	}
}
