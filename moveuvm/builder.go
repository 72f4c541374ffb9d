package moveuvm

import "encoding/binary"

// Builder assembles a Module by hand, giving tests and internal fixtures a way to construct modules exercising
// specific VM behaviors (aborts, shift truncation, native faults, storage-backed state machines) without a real
// Move compiler.
type Builder struct {
	address      Address
	name         string
	minVMVersion string
	fns          []Function
}

// NewBuilder starts assembling a module published at addr under name.
func NewBuilder(addr Address, name string) *Builder {
	return &Builder{address: addr, name: name}
}

// RequireVMVersion sets a semver constraint (e.g. ">= 1.0.0") the publishing chain state checks against VMVersion.
// Unset, a built module declares no minimum and is always accepted.
func (b *Builder) RequireVMVersion(constraint string) *Builder {
	b.minVMVersion = constraint
	return b
}

// Function begins a function named name taking params, whose body is built with a FuncBuilder.
func (b *Builder) Function(name string, params ...TypeTag) *FuncBuilder {
	return &FuncBuilder{parent: b, fn: Function{Name: name, ParamTypes: params}}
}

// NewScriptBuilder starts assembling a standalone instruction stream, for building Script payload bytecode rather
// than a module function. Call Code instead of End to retrieve the finished stream.
func NewScriptBuilder() *FuncBuilder {
	return &FuncBuilder{}
}

// Code returns the instructions accumulated so far, for a FuncBuilder built with NewScriptBuilder.
func (f *FuncBuilder) Code() []Instruction {
	return f.fn.Code
}

// Build finalizes the module.
func (b *Builder) Build() *Module {
	return &Module{Address: b.address, Name: b.name, MinVMVersion: b.minVMVersion, Functions: b.fns}
}

// FuncBuilder accumulates instructions for a single function.
type FuncBuilder struct {
	parent *Builder
	fn     Function
}

func (f *FuncBuilder) emit(op Opcode, operand uint64) *FuncBuilder {
	f.fn.Code = append(f.fn.Code, Instruction{Op: op, Operand: operand})
	return f
}

// LoadArg pushes formal argument i.
func (f *FuncBuilder) LoadArg(i uint64) *FuncBuilder { return f.emit(OpLoadArg, i) }

// PushConst pushes the literal v.
func (f *FuncBuilder) PushConst(v uint64) *FuncBuilder { return f.emit(OpPushConst, v) }

// Dup duplicates the top of stack.
func (f *FuncBuilder) Dup() *FuncBuilder { return f.emit(OpDup, 0) }

// Pop discards the top of stack.
func (f *FuncBuilder) Pop() *FuncBuilder { return f.emit(OpPop, 0) }

// Add pops b, a and pushes a+b.
func (f *FuncBuilder) Add() *FuncBuilder { return f.emit(OpAdd, 0) }

// Sub pops b, a and pushes a-b.
func (f *FuncBuilder) Sub() *FuncBuilder { return f.emit(OpSub, 0) }

// Mul pops b, a and pushes a*b.
func (f *FuncBuilder) Mul() *FuncBuilder { return f.emit(OpMul, 0) }

// Div pops b, a and pushes a/b, faulting on b==0.
func (f *FuncBuilder) Div() *FuncBuilder { return f.emit(OpDiv, 0) }

// Mod pops b, a and pushes a%b, faulting on b==0.
func (f *FuncBuilder) Mod() *FuncBuilder { return f.emit(OpMod, 0) }

// Eq pops b, a and pushes a==b.
func (f *FuncBuilder) Eq() *FuncBuilder { return f.emit(OpEq, 0) }

// Lt pops b, a and pushes a<b.
func (f *FuncBuilder) Lt() *FuncBuilder { return f.emit(OpLt, 0) }

// Gt pops b, a and pushes a>b.
func (f *FuncBuilder) Gt() *FuncBuilder { return f.emit(OpGt, 0) }

// Shl pops shift, a and pushes a<<shift truncated to bitWidth bits.
func (f *FuncBuilder) Shl(bitWidth uint64) *FuncBuilder { return f.emit(OpShl, bitWidth) }

// Shr pops shift, a and pushes a>>shift.
func (f *FuncBuilder) Shr(bitWidth uint64) *FuncBuilder { return f.emit(OpShr, bitWidth) }

// Jump sets pc to target.
func (f *FuncBuilder) Jump(target uint64) *FuncBuilder { return f.emit(OpJump, target) }

// JumpIfFalse pops a condition and jumps to target if it is zero.
func (f *FuncBuilder) JumpIfFalse(target uint64) *FuncBuilder { return f.emit(OpJumpIfFalse, target) }

// Abort pops an abort code and raises it.
func (f *FuncBuilder) Abort() *FuncBuilder { return f.emit(OpAbort, 0) }

// AbortIfFalse pops a condition then a code, aborting with code if the condition is zero.
func (f *FuncBuilder) AbortIfFalse() *FuncBuilder { return f.emit(OpAbortIfFalse, 0) }

// GetState pushes the resource stored at key.
func (f *FuncBuilder) GetState(key uint64) *FuncBuilder { return f.emit(OpGetState, key) }

// SetState buffers a write of the top of stack to key.
func (f *FuncBuilder) SetState(key uint64) *FuncBuilder { return f.emit(OpSetState, key) }

// InvariantViolation raises a VM invariant failure.
func (f *FuncBuilder) InvariantViolation() *FuncBuilder { return f.emit(OpInvariantViolation, 0) }

// Return ends the function normally.
func (f *FuncBuilder) Return() *FuncBuilder { return f.emit(OpReturn, 0) }

// PC returns the index the next emitted instruction will occupy, for computing jump targets.
func (f *FuncBuilder) PC() uint64 { return uint64(len(f.fn.Code)) }

// End finalizes the function and returns to the parent Builder.
func (f *FuncBuilder) End() *Builder {
	f.parent.fns = append(f.parent.fns, f.fn)
	return f.parent
}

// Encode serializes m into the wire format DecodeModule accepts.
func Encode(m *Module) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, magic[:]...)
	buf = append(buf, m.Address[:]...)
	buf = appendString16(buf, m.Name)
	buf = appendString16(buf, m.MinVMVersion)

	fnCountBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(fnCountBuf, uint16(len(m.Functions)))
	buf = append(buf, fnCountBuf...)

	for _, fn := range m.Functions {
		buf = appendString16(buf, fn.Name)
		buf = append(buf, byte(len(fn.ParamTypes)))
		for _, t := range fn.ParamTypes {
			buf = append(buf, byte(t))
		}

		code := EncodeInstructions(fn.Code)
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(code)))
		buf = append(buf, lenBuf...)
		buf = append(buf, code...)
	}

	return buf
}

// EncodeInstructions serializes an instruction stream into the same opcode/operand wire format used by a
// function's code section and by DecodeScriptCode, without any surrounding length prefix.
func EncodeInstructions(code []Instruction) []byte {
	buf := make([]byte, 0, len(code)*5)
	for _, instr := range code {
		buf = append(buf, byte(instr.Op))
		if instr.Op.HasOperand() {
			opBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(opBuf, uint32(instr.Operand))
			buf = append(buf, opBuf...)
		}
	}
	return buf
}

func appendString16(buf []byte, s string) []byte {
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(len(s)))
	buf = append(buf, lenBuf...)
	return append(buf, s...)
}
