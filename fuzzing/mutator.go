package fuzzing

import (
	"math/big"
	"math/rand"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/crytic/movedusa/payload"
	"github.com/crytic/movedusa/utils"
)

// maxByteVectorDelta bounds how much a single resize mutation can grow or shrink a byte blob's length, keeping
// mutated arguments from drifting unboundedly across many generations.
const maxByteVectorDelta = 16

// MaxArgBytes caps how long a mutated EntryFunction argument blob may ever grow, regardless of how many resize
// mutations accumulate across generations.
const MaxArgBytes = 4096

// MutationResult reports whether Mutate actually changed anything.
type MutationResult uint8

const (
	// Mutated indicates one argument of the payload was rewritten in place. The new value is not compared with the
	// old one, so in rare cases (a zero delta, or a random value equal to the old one) the payload is unchanged.
	Mutated MutationResult = iota
	// Skipped indicates the payload had no argument to rewrite (e.g. a zero-argument function).
	Skipped
)

// Mutator produces new candidate payloads by perturbing an existing one's arguments in place, never changing its
// variant, target identity, or argument arity/tags. EntryFunction arguments are treated as opaque byte blobs;
// Script arguments are replaced with a freshly generated value of the same type tag.
type Mutator struct {
	rng *rand.Rand
}

// NewMutator returns a Mutator seeded from seed, making a fuzzing run's mutation sequence reproducible for a fixed
// seed and corpus.
func NewMutator(seed int64) *Mutator {
	return &Mutator{rng: rand.New(rand.NewSource(seed))}
}

// Mutate rewrites one argument of p in place and returns Mutated, or returns Skipped when p has no argument to
// rewrite. It does not check whether the rewritten argument differs from the old one.
func (m *Mutator) Mutate(p payload.Payload) MutationResult {
	switch v := p.(type) {
	case *payload.EntryFunction:
		return m.mutateEntryFunction(v)
	case *payload.Script:
		return m.mutateScript(v)
	default:
		return Skipped
	}
}

func (m *Mutator) mutateEntryFunction(ef *payload.EntryFunction) MutationResult {
	if len(ef.Args) == 0 {
		return Skipped
	}
	i := m.rng.Intn(len(ef.Args))
	ef.Args[i] = m.mutateByteVector(ef.Args[i])
	return Mutated
}

// mutateByteVector applies one of two distinct strategies to b, chosen with equal probability (an empty blob is
// always resized): resize (grow or
// shrink the blob by a small delta, filling any new tail bytes with random data while leaving existing bytes in
// place) or window-replace (leave the length untouched and re-randomize a contiguous run of existing bytes). The
// BCS structural tag prefixes a blob may carry (e.g. vector-length varints) are not preserved by either strategy;
// the executor's deserializer is responsible for rejecting malformed blobs cleanly.
func (m *Mutator) mutateByteVector(b []byte) []byte {
	if len(b) == 0 {
		return m.resizeByteVector(b)
	}
	if m.rng.Intn(2) == 0 {
		return m.resizeByteVector(b)
	}
	return m.windowReplaceByteVector(b)
}

// resizeByteVector grows or shrinks b by a delta in [-maxByteVectorDelta, maxByteVectorDelta], clamped to
// [0, MaxArgBytes]. Bytes shared between the old and new length are preserved; a grown tail is filled with random
// bytes, a shrunk blob simply drops its trailing bytes.
func (m *Mutator) resizeByteVector(b []byte) []byte {
	delta := m.rng.Intn(2*maxByteVectorDelta+1) - maxByteVectorDelta
	newLen := len(b) + delta
	if newLen < 0 {
		newLen = 0
	}
	if newLen > MaxArgBytes {
		newLen = MaxArgBytes
	}
	if newLen == len(b) {
		newLen++
		if newLen > MaxArgBytes {
			newLen = MaxArgBytes
		}
	}

	out := make([]byte, newLen)
	n := copy(out, b)
	if n < newLen {
		m.rng.Read(out[n:])
	}
	return out
}

// windowReplaceByteVector re-randomizes a contiguous run of b's existing bytes in place, leaving its length and
// every byte outside the window untouched.
func (m *Mutator) windowReplaceByteVector(b []byte) []byte {
	out := append([]byte(nil), b...)
	windowLen := 1 + m.rng.Intn(len(out))
	start := m.rng.Intn(len(out) - windowLen + 1)
	m.rng.Read(out[start : start+windowLen])
	return out
}

func (m *Mutator) mutateScript(s *payload.Script) MutationResult {
	if len(s.Args) == 0 {
		return Skipped
	}
	i := m.rng.Intn(len(s.Args))
	s.Args[i].Value = m.randomValueForTag(s.Args[i].Tag, s.Args[i].Value)
	return Mutated
}

// randomValueForTag generates a BCS-encoded value of tag's shape, preserving the argument's type per the Script
// variant's type-preserving mutation contract. For fixed-width integers, half the time it instead nudges the
// previous value by a small delta and wraps the result back into range, the same "mutate-then-constrain" style
// the teacher's tx_generator_mutation.go uses for its own integer arguments, which tends to walk toward interesting
// boundary values (0, max, off-by-one) more often than pure resampling.
func (m *Mutator) randomValueForTag(tag moveuvm.TypeTag, prev []byte) []byte {
	if width, ok := tag.FixedWidth(); ok && len(prev) == width/8 && m.rng.Intn(2) == 0 {
		return m.deltaMutateInteger(prev, width)
	}

	switch tag {
	case moveuvm.TypeBool:
		if m.rng.Intn(2) == 0 {
			return []byte{0}
		}
		return []byte{1}
	case moveuvm.TypeU8:
		return []byte{byte(m.rng.Intn(256))}
	case moveuvm.TypeU16:
		b := make([]byte, 2)
		m.rng.Read(b)
		return b
	case moveuvm.TypeU32:
		b := make([]byte, 4)
		m.rng.Read(b)
		return b
	case moveuvm.TypeU64:
		b := make([]byte, 8)
		m.rng.Read(b)
		return b
	case moveuvm.TypeU128:
		b := make([]byte, 16)
		m.rng.Read(b)
		return b
	case moveuvm.TypeU256:
		b := make([]byte, 32)
		m.rng.Read(b)
		return b
	case moveuvm.TypeAddress:
		b := make([]byte, 32)
		m.rng.Read(b)
		return b
	case moveuvm.TypeU8Vector:
		length := m.rng.Intn(64)
		raw := make([]byte, length)
		m.rng.Read(raw)
		prefix := moveuvm.EncodeUleb128(nil, uint64(length))
		return append(prefix, raw...)
	default:
		return nil
	}
}

// deltaMutateInteger reads prev as a little-endian unsigned integer, adds a small signed delta, wraps the result
// back into [0, 2^width) via utils.ConstrainIntegerToBitLength, and re-encodes it little-endian.
func (m *Mutator) deltaMutateInteger(prev []byte, width int) []byte {
	current := new(big.Int).SetBytes(reverseBytes(prev))
	delta := int64(m.rng.Intn(17)) - 8
	current.Add(current, big.NewInt(delta))
	constrained := utils.ConstrainIntegerToBitLength(current, false, width)

	bigEndian := make([]byte, len(prev))
	b := constrained.Bytes()
	if len(b) > len(bigEndian) {
		// Should not happen given the width constraint above, but guard against a malformed width.
		b = b[len(b)-len(bigEndian):]
	}
	copy(bigEndian[len(bigEndian)-len(b):], b)
	return reverseBytes(bigEndian)
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
