package moveuvm

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// magic identifies a movedusa-format compiled module. It has no relation to any real Move bytecode file format;
// it exists purely as the wire format this harness's embedded interpreter accepts in place of linking a real
// Move VM, which has no maintained Go implementation.
var magic = [4]byte{'M', 'V', 'D', 1}

// Address is a 32-byte account address, matching the width of a real Aptos/Move account address.
type Address [32]byte

// ZeroAddress is the default address used when a module or ABI does not specify one explicitly.
var ZeroAddress Address

// Function is a single callable entry point within a Module: an ordered parameter signature and a code section.
type Function struct {
	Name       string
	ParamTypes []TypeTag
	Code       []Instruction
}

// VMVersion is the version this embedded interpreter reports itself as, checked against a module's MinVMVersion
// constraint at publish time.
const VMVersion = "1.0.0"

// Module is a decoded compiled module: a publishing address, a name, and its exported functions. MinVMVersion is a
// semver constraint (e.g. ">= 1.0.0") the publishing chain state checks against VMVersion; an empty string means
// the module declares no minimum and is always accepted.
type Module struct {
	Address      Address
	Name         string
	MinVMVersion string
	Functions    []Function
}

// FunctionByName returns the function with the given name, or false if the module does not export it.
func (m *Module) FunctionByName(name string) (*Function, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}

// ErrTruncated is returned by DecodeModule when the input ends before a length-prefixed field can be read in full.
var ErrTruncated = errors.New("truncated module bytes")

// ErrBadMagic is returned by DecodeModule when the input does not begin with the expected module magic bytes.
var ErrBadMagic = errors.New("bad module magic")

// DecodeModule parses the wire format written by Encode: 4-byte magic, 32-byte address, a uint16-length-
// prefixed module name, a uint16-length-prefixed minimum-VM-version constraint string, a uint16 function count, and
// per function a length-prefixed name, a byte count of parameter type tags followed by the tags themselves, and a
// uint32-length-prefixed instruction stream.
func DecodeModule(b []byte) (*Module, error) {
	r := &reader{buf: b}

	var gotMagic [4]byte
	if err := r.readFixed(gotMagic[:]); err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if gotMagic != magic {
		return nil, ErrBadMagic
	}

	m := &Module{}
	if err := r.readFixed(m.Address[:]); err != nil {
		return nil, errors.Wrap(err, "reading module address")
	}

	name, err := r.readString16()
	if err != nil {
		return nil, errors.Wrap(err, "reading module name")
	}
	m.Name = name

	minVersion, err := r.readString16()
	if err != nil {
		return nil, errors.Wrap(err, "reading module min VM version")
	}
	m.MinVMVersion = minVersion

	fnCount, err := r.readUint16()
	if err != nil {
		return nil, errors.Wrap(err, "reading function count")
	}

	m.Functions = make([]Function, fnCount)
	for i := 0; i < int(fnCount); i++ {
		fnName, err := r.readString16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading function %d name", i)
		}

		paramCount, err := r.readByte()
		if err != nil {
			return nil, errors.Wrapf(err, "reading function %d param count", i)
		}
		params := make([]TypeTag, paramCount)
		for j := range params {
			tb, err := r.readByte()
			if err != nil {
				return nil, errors.Wrapf(err, "reading function %d param %d tag", i, j)
			}
			params[j] = TypeTag(tb)
		}

		code, err := r.readCode()
		if err != nil {
			return nil, errors.Wrapf(err, "reading function %d code", i)
		}

		m.Functions[i] = Function{Name: fnName, ParamTypes: params, Code: code}
	}

	return m, nil
}

// DecodeScriptCode parses a standalone bytecode blob (as carried by a Script payload) into an instruction stream,
// using the same opcode/operand wire format as a function's code section but without a length prefix, since the
// blob's length is already known to the caller.
func DecodeScriptCode(b []byte) ([]Instruction, error) {
	r := &reader{buf: b}
	code := make([]Instruction, 0, len(b)/2)
	for r.pos < len(r.buf) {
		opb, err := r.readByte()
		if err != nil {
			return nil, err
		}
		op := Opcode(opb)
		var operand uint64
		if op.HasOperand() {
			v, err := r.readUint32()
			if err != nil {
				return nil, err
			}
			operand = uint64(v)
		}
		code = append(code, Instruction{Op: op, Operand: operand})
	}
	return code, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readFixed(dst []byte) error {
	if len(r.buf)-r.pos < len(dst) {
		return ErrTruncated
	}
	copy(dst, r.buf[r.pos:])
	r.pos += len(dst)
	return nil
}

func (r *reader) readByte() (byte, error) {
	if len(r.buf)-r.pos < 1 {
		return 0, ErrTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readUint16() (uint16, error) {
	if len(r.buf)-r.pos < 2 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) readUint32() (uint32, error) {
	if len(r.buf)-r.pos < 4 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readString16() (string, error) {
	n, err := r.readUint16()
	if err != nil {
		return "", err
	}
	if len(r.buf)-r.pos < int(n) {
		return "", ErrTruncated
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readCode() ([]Instruction, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	code := make([]Instruction, 0, n/2)
	end := r.pos + int(n)
	if end > len(r.buf) {
		return nil, ErrTruncated
	}
	for r.pos < end {
		opb, err := r.readByte()
		if err != nil {
			return nil, err
		}
		op := Opcode(opb)
		var operand uint64
		if op.HasOperand() {
			v, err := r.readUint32()
			if err != nil {
				return nil, err
			}
			operand = uint64(v)
		}
		code = append(code, Instruction{Op: op, Operand: operand})
	}
	return code, nil
}
