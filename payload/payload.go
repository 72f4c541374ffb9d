// Package payload defines the transaction shapes the fuzzer synthesizes, mutates, and executes: EntryFunction
// calls against a published module's formal parameters, and Script calls carrying a bytecode blob plus tagged
// scalar arguments.
package payload

import (
	"github.com/crytic/movedusa/moveuvm"
)

// Payload is a transaction body the executor can run against a chain.MockState. The two implementations,
// EntryFunction and Script, are the only variants; a Payload's variant, target identity, and argument arity/tags
// are fixed at construction and never mutated in place — only argument bytes/values change.
type Payload interface {
	// FunctionID returns the stable identifier the executor hashes into the base edge ID for this payload: for an
	// EntryFunction this is derived from the target module address, module name, and function name; for a Script
	// it is derived from the script bytecode itself.
	FunctionID() uint64
	// Clone returns a deep copy safe to mutate independently of the original.
	Clone() Payload
}

// EntryFunction invokes a function already published on chain, addressed by module address, module name, and
// function name, with type arguments and an ordered list of opaque BCS-encoded argument blobs. The mutator treats
// each blob as an uninterpreted byte string; it never re-derives structure from the ABI.
type EntryFunction struct {
	ModuleAddress moveuvm.Address
	ModuleName    string
	FunctionName  string
	TypeArgs      []string
	Args          [][]byte
}

// FunctionID hashes the module address, module name, and function name with FNV-1a/64, matching the identity the
// executor uses to seed edge hashing for this call target.
func (e *EntryFunction) FunctionID() uint64 {
	h := newFNV64a()
	h.writeBytes(e.ModuleAddress[:])
	h.writeString(e.ModuleName)
	h.writeString(e.FunctionName)
	return h.sum
}

// Clone returns a deep copy of e.
func (e *EntryFunction) Clone() Payload {
	out := &EntryFunction{
		ModuleAddress: e.ModuleAddress,
		ModuleName:    e.ModuleName,
		FunctionName:  e.FunctionName,
		TypeArgs:      append([]string(nil), e.TypeArgs...),
		Args:          make([][]byte, len(e.Args)),
	}
	for i, a := range e.Args {
		out.Args[i] = append([]byte(nil), a...)
	}
	return out
}

// ScriptArg is a single tagged Script argument. Unlike EntryFunction's opaque blobs, a ScriptArg carries its type
// tag alongside the decoded value, so the mutator can replace it with a new value of the same tag rather than
// treating it as an unstructured byte string.
type ScriptArg struct {
	Tag   moveuvm.TypeTag
	Value []byte
}

// Script invokes standalone bytecode directly, without an ABI, carrying type arguments and tagged scalar
// arguments in place of an EntryFunction's opaque blobs.
type Script struct {
	Code     []byte
	TypeArgs []string
	Args     []ScriptArg
}

// FunctionID hashes the script's own bytecode with FNV-1a/64, since a Script has no module/function identity to
// hash instead.
func (s *Script) FunctionID() uint64 {
	h := newFNV64a()
	h.writeBytes(s.Code)
	return h.sum
}

// Clone returns a deep copy of s.
func (s *Script) Clone() Payload {
	out := &Script{
		Code:     append([]byte(nil), s.Code...),
		TypeArgs: append([]string(nil), s.TypeArgs...),
		Args:     make([]ScriptArg, len(s.Args)),
	}
	for i, a := range s.Args {
		out.Args[i] = ScriptArg{Tag: a.Tag, Value: append([]byte(nil), a.Value...)}
	}
	return out
}

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

type fnv64a struct {
	sum uint64
}

func newFNV64a() *fnv64a {
	return &fnv64a{sum: fnvOffset64}
}

func (h *fnv64a) writeBytes(b []byte) {
	for _, c := range b {
		h.sum ^= uint64(c)
		h.sum *= fnvPrime64
	}
}

func (h *fnv64a) writeString(s string) {
	h.writeBytes([]byte(s))
}
