package moveuvm

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// TypeTag identifies the shape of a scalar or blob value that can cross the VM boundary, either as a formal
// parameter of an entry function or as a tagged Script argument.
type TypeTag uint8

const (
	// TypeBool tags a boolean argument.
	TypeBool TypeTag = iota
	// TypeU8 tags an 8-bit unsigned integer argument.
	TypeU8
	// TypeU16 tags a 16-bit unsigned integer argument.
	TypeU16
	// TypeU32 tags a 32-bit unsigned integer argument.
	TypeU32
	// TypeU64 tags a 64-bit unsigned integer argument.
	TypeU64
	// TypeU128 tags a 128-bit unsigned integer argument.
	TypeU128
	// TypeU256 tags a 256-bit unsigned integer argument.
	TypeU256
	// TypeAddress tags a 32-byte account address argument.
	TypeAddress
	// TypeU8Vector tags a variable-length byte vector argument.
	TypeU8Vector
	// TypeUnsupported marks a formal parameter type the harness cannot synthesize or decode (structs, generics,
	// signers). DecodeArgument rejects any argument for this tag, so a function carrying it among its parameters is
	// never executed, and the seeder will refuse to synthesize a payload for it.
	TypeUnsupported
)

// String returns a human-readable name for the TypeTag, used in log output.
func (t TypeTag) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeU128:
		return "u128"
	case TypeU256:
		return "u256"
	case TypeAddress:
		return "address"
	case TypeU8Vector:
		return "vector<u8>"
	default:
		return "unsupported"
	}
}

// FixedWidth returns the bit width of an integer TypeTag, and false for tags that are not fixed-width integers.
func (t TypeTag) FixedWidth() (int, bool) {
	switch t {
	case TypeU8:
		return 8, true
	case TypeU16:
		return 16, true
	case TypeU32:
		return 32, true
	case TypeU64:
		return 64, true
	case TypeU128:
		return 128, true
	case TypeU256:
		return 256, true
	default:
		return 0, false
	}
}

// ErrMalformedArgument is returned by DecodeArgument when a byte blob does not match the shape its TypeTag demands.
// The executor treats this as a clean, uninteresting rejection rather than a crash.
var ErrMalformedArgument = errors.New("malformed argument blob")

// DecodeArgument deserializes a BCS-style byte blob into a 256-bit VM register according to the formal parameter's
// TypeTag. Byte vectors are represented as their uleb128-prefixed length folded into the low bits of the register,
// which is sufficient for the VM's own arithmetic and branching; the raw bytes remain available via blob.
func DecodeArgument(tag TypeTag, blob []byte) (*uint256.Int, error) {
	switch tag {
	case TypeBool:
		if len(blob) != 1 || blob[0] > 1 {
			return nil, errors.Wrapf(ErrMalformedArgument, "bool must be 1 byte in {0,1}, got %d bytes", len(blob))
		}
		return uint256.NewInt(uint64(blob[0])), nil
	case TypeU8:
		if len(blob) != 1 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u8 must be 1 byte, got %d", len(blob))
		}
		return uint256.NewInt(uint64(blob[0])), nil
	case TypeU16:
		if len(blob) != 2 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u16 must be 2 bytes, got %d", len(blob))
		}
		return uint256.NewInt(uint64(blob[0]) | uint64(blob[1])<<8), nil
	case TypeU32:
		if len(blob) != 4 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u32 must be 4 bytes, got %d", len(blob))
		}
		v := uint64(0)
		for i := 3; i >= 0; i-- {
			v = v<<8 | uint64(blob[i])
		}
		return uint256.NewInt(v), nil
	case TypeU64:
		if len(blob) != 8 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u64 must be 8 bytes, got %d", len(blob))
		}
		v := uint64(0)
		for i := 7; i >= 0; i-- {
			v = v<<8 | uint64(blob[i])
		}
		return uint256.NewInt(v), nil
	case TypeU128:
		if len(blob) != 16 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u128 must be 16 bytes, got %d", len(blob))
		}
		return new(uint256.Int).SetBytes(reverse(blob)), nil
	case TypeU256:
		if len(blob) != 32 {
			return nil, errors.Wrapf(ErrMalformedArgument, "u256 must be 32 bytes, got %d", len(blob))
		}
		return new(uint256.Int).SetBytes(reverse(blob)), nil
	case TypeAddress:
		if len(blob) != 32 {
			return nil, errors.Wrapf(ErrMalformedArgument, "address must be 32 bytes, got %d", len(blob))
		}
		return new(uint256.Int).SetBytes(blob), nil
	case TypeU8Vector:
		length, n, err := decodeUleb128(blob)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedArgument, err.Error())
		}
		if n+int(length) != len(blob) {
			return nil, errors.Wrapf(ErrMalformedArgument, "vector<u8> declared length %d does not match remaining %d bytes", length, len(blob)-n)
		}
		return uint256.NewInt(length), nil
	default:
		return nil, errors.Wrapf(ErrMalformedArgument, "unsupported type tag %v", tag)
	}
}

// reverse returns a copy of b with byte order reversed, used to convert BCS little-endian encodings into the
// big-endian byte order uint256.SetBytes expects.
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// decodeUleb128 decodes an unsigned LEB128 varint from the front of b, as used for BCS sequence length prefixes.
// Returns the decoded value and the number of bytes consumed.
func decodeUleb128(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		v := b[i]
		result |= uint64(v&0x7F) << shift
		if v&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift > 63 {
			return 0, 0, errors.New("uleb128 varint too long")
		}
	}
	return 0, 0, errors.New("truncated uleb128 varint")
}

// EncodeUleb128 encodes v as an unsigned LEB128 varint, appending to dst.
func EncodeUleb128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst
		}
	}
}
