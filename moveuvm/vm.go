package moveuvm

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Opcode identifies a single VM instruction. The instruction set is intentionally small: just enough stack
// arithmetic, control flow, and storage access to let assembled fixture modules express aborts, shift-truncation
// bugs, arithmetic traps, and multi-call state machines.
type Opcode uint8

const (
	// OpLoadArg pushes formal argument Operand onto the stack.
	OpLoadArg Opcode = iota
	// OpPushConst pushes the literal value Operand onto the stack.
	OpPushConst
	// OpDup duplicates the top of the stack.
	OpDup
	// OpPop discards the top of the stack.
	OpPop
	// OpAdd pops b, a and pushes a+b, wrapping mod 2^256.
	OpAdd
	// OpSub pops b, a and pushes a-b, wrapping mod 2^256.
	OpSub
	// OpMul pops b, a and pushes a*b, wrapping mod 2^256.
	OpMul
	// OpDiv pops b, a and pushes a/b. Division by zero raises ErrNativeFault, simulating a native runtime panic.
	OpDiv
	// OpMod pops b, a and pushes a%b. Modulo by zero raises ErrNativeFault.
	OpMod
	// OpEq pops b, a and pushes 1 if a==b else 0.
	OpEq
	// OpLt pops b, a and pushes 1 if a<b else 0.
	OpLt
	// OpGt pops b, a and pushes 1 if a>b else 0.
	OpGt
	// OpShl pops shift, a and pushes a<<shift truncated to Operand bits. If the shift pushes any 1 bit past the
	// truncation width, the VM's shift-loss callback fires for this step.
	OpShl
	// OpShr pops shift, a and pushes a>>shift. Its Operand bit width is carried in the wire format but not applied.
	OpShr
	// OpJump unconditionally sets pc to Operand.
	OpJump
	// OpJumpIfFalse pops a value and sets pc to Operand if it is zero.
	OpJumpIfFalse
	// OpAbort pops an abort code and raises ErrAbort(code).
	OpAbort
	// OpAbortIfFalse pops a condition then an abort code; if the condition is zero, raises ErrAbort(code).
	OpAbortIfFalse
	// OpGetState pushes the resource stored under key Operand in the executing module's account, or 0 if unset.
	OpGetState
	// OpSetState buffers a write of the top-of-stack value to key Operand, applied only if the call ends OK.
	OpSetState
	// OpInvariantViolation raises ErrInvariantViolation, simulating a Move VM invariant failure.
	OpInvariantViolation
	// OpReturn ends execution of the current call normally.
	OpReturn
)

// HasOperand reports whether an instruction of this Opcode carries a 32-bit operand in the wire format.
func (op Opcode) HasOperand() bool {
	switch op {
	case OpLoadArg, OpPushConst, OpShl, OpShr, OpJump, OpJumpIfFalse, OpGetState, OpSetState:
		return true
	default:
		return false
	}
}

// Instruction is a single decoded VM instruction: an opcode plus its (possibly unused) operand.
type Instruction struct {
	Op      Opcode
	Operand uint64
}

// MaxSteps bounds the number of instructions a single call may execute before the VM gives up and returns cleanly,
// standing in for the Move VM's own gas metering. A run that hits this limit is not interesting: it ends without an
// error like a normal return, but its buffered writes are discarded rather than handed back for commit.
const MaxSteps = 1 << 16

// ErrAbort is raised by OpAbort/OpAbortIfFalse. Code carries the Move-style abort code.
type ErrAbort struct {
	Code uint64
}

func (e *ErrAbort) Error() string {
	return errors.Errorf("move abort: code %d", e.Code).Error()
}

// ErrInvariantViolation is raised by OpInvariantViolation, standing in for a Move VM internal invariant failure.
// The executor promotes this to a Crash outcome.
var ErrInvariantViolation = errors.New("VM invariant violation")

// ErrNativeFault is raised by a division or modulo by zero, standing in for a native function panic unwinding out
// of the VM. The executor promotes this to a Crash outcome, matching how a real panic-unwind would surface.
var ErrNativeFault = errors.New("native function fault")

// ErrStackUnderflow indicates a malformed or adversarially constructed instruction stream popped an empty stack.
// Reachable only from hand-built or corrupted modules, never from ordinary mutation of arguments; the executor
// treats it as an invariant violation.
var ErrStackUnderflow = errors.New("stack underflow")

// Callbacks lets the executor observe VM execution as it happens, without the VM holding any reference back to
// coverage or observer state. A fresh set is installed before each run and discarded after; the VM itself never
// outlives a single call and holds no ownership over what the callbacks mutate.
type Callbacks struct {
	// OnPC is invoked once per executed instruction with the current program counter, before the instruction runs.
	OnPC func(pc uint64)
	// OnShiftLoss is invoked whenever an OpShl truncation discards a set bit.
	OnShiftLoss func()
}

// State is the storage surface a call can read and buffer writes to. Reads are immediate; writes are buffered in
// the VM and only handed back to the caller for commit if the call completes without error.
type State interface {
	// Get returns the stored value for (address, key), and whether it was present.
	Get(addr Address, key uint64) (*uint256.Int, bool)
}

// PendingWrite is a single buffered storage write produced by a call, to be committed by the executor only if the
// call as a whole succeeds.
type PendingWrite struct {
	Address Address
	Key     uint64
	Value   *uint256.Int
}

// Run executes fn with the given argument registers against state, reporting instrumentation via cb. It returns
// the buffered writes the call would make and an error identifying why the call ended, if abnormally.
func Run(module *Module, fn *Function, args []*uint256.Int, state State, cb Callbacks) ([]PendingWrite, error) {
	stack := make([]*uint256.Int, 0, 16)
	var writes []PendingWrite

	push := func(v *uint256.Int) { stack = append(stack, v) }
	pop := func() (*uint256.Int, error) {
		if len(stack) == 0 {
			return nil, ErrStackUnderflow
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	pc := uint64(0)
	for steps := 0; steps < MaxSteps; steps++ {
		if pc >= uint64(len(fn.Code)) {
			return writes, nil
		}
		if cb.OnPC != nil {
			cb.OnPC(pc)
		}
		instr := fn.Code[pc]
		nextPC := pc + 1

		switch instr.Op {
		case OpLoadArg:
			if int(instr.Operand) >= len(args) {
				return nil, ErrInvariantViolation
			}
			push(args[instr.Operand])
		case OpPushConst:
			push(uint256.NewInt(instr.Operand))
		case OpDup:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			push(v)
			push(new(uint256.Int).Set(v))
		case OpPop:
			if _, err := pop(); err != nil {
				return nil, err
			}
		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpLt, OpGt:
			b, err := pop()
			if err != nil {
				return nil, err
			}
			a, err := pop()
			if err != nil {
				return nil, err
			}
			result, err := binaryOp(instr.Op, a, b)
			if err != nil {
				return nil, err
			}
			push(result)
		case OpShl:
			shift, err := pop()
			if err != nil {
				return nil, err
			}
			a, err := pop()
			if err != nil {
				return nil, err
			}
			width := instr.Operand
			if width == 0 || width > 256 {
				width = 256
			}
			shifted := new(uint256.Int).Lsh(a, uint(shift.Uint64()))
			mask := maskForWidth(width)
			truncated := new(uint256.Int).And(shifted, mask)
			if !truncated.Eq(shifted) && cb.OnShiftLoss != nil {
				cb.OnShiftLoss()
			}
			push(truncated)
		case OpShr:
			shift, err := pop()
			if err != nil {
				return nil, err
			}
			a, err := pop()
			if err != nil {
				return nil, err
			}
			push(new(uint256.Int).Rsh(a, uint(shift.Uint64())))
		case OpJump:
			nextPC = instr.Operand
		case OpJumpIfFalse:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			if v.IsZero() {
				nextPC = instr.Operand
			}
		case OpAbort:
			code, err := pop()
			if err != nil {
				return nil, err
			}
			return nil, &ErrAbort{Code: code.Uint64()}
		case OpAbortIfFalse:
			cond, err := pop()
			if err != nil {
				return nil, err
			}
			code, err := pop()
			if err != nil {
				return nil, err
			}
			if cond.IsZero() {
				return nil, &ErrAbort{Code: code.Uint64()}
			}
		case OpGetState:
			v, ok := state.Get(module.Address, instr.Operand)
			if !ok {
				v = uint256.NewInt(0)
			}
			push(v)
		case OpSetState:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			writes = append(writes, PendingWrite{Address: module.Address, Key: instr.Operand, Value: v})
		case OpInvariantViolation:
			return nil, ErrInvariantViolation
		case OpReturn:
			return writes, nil
		default:
			return nil, ErrInvariantViolation
		}

		pc = nextPC
	}
	// Instruction budget exceeded: treated as a clean, uninteresting exit rather than an error, matching how gas
	// exhaustion ends a real Move call.
	return nil, nil
}

func binaryOp(op Opcode, a, b *uint256.Int) (*uint256.Int, error) {
	switch op {
	case OpAdd:
		return new(uint256.Int).Add(a, b), nil
	case OpSub:
		return new(uint256.Int).Sub(a, b), nil
	case OpMul:
		return new(uint256.Int).Mul(a, b), nil
	case OpDiv:
		if b.IsZero() {
			return nil, ErrNativeFault
		}
		return new(uint256.Int).Div(a, b), nil
	case OpMod:
		if b.IsZero() {
			return nil, ErrNativeFault
		}
		return new(uint256.Int).Mod(a, b), nil
	case OpEq:
		if a.Eq(b) {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	case OpLt:
		if a.Lt(b) {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	case OpGt:
		if a.Gt(b) {
			return uint256.NewInt(1), nil
		}
		return uint256.NewInt(0), nil
	default:
		return nil, ErrInvariantViolation
	}
}

func maskForWidth(width uint64) *uint256.Int {
	if width >= 256 {
		return new(uint256.Int).Not(uint256.NewInt(0))
	}
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, uint(width))
	return new(uint256.Int).Sub(shifted, uint256.NewInt(1))
}
