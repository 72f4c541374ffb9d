// Package analysis performs a static, non-executing pass over a decoded module ahead of fuzzing, surfacing
// findings a reviewer would want to see even if the fuzzer never reaches the code path in question.
package analysis

import "github.com/crytic/movedusa/moveuvm"

// FindingKind identifies the category of a static-analysis finding.
type FindingKind int

const (
	// FindingPrecisionLoss flags a left-shift whose result width can silently drop set bits.
	FindingPrecisionLoss FindingKind = iota
	// FindingUnboundedBackwardJump flags a backward jump with no dominating conditional branch, a shape that can
	// loop until the VM's own step budget kills it rather than terminating on its own.
	FindingUnboundedBackwardJump
	// FindingUnreachableFunction flags a function the seeded ABI set never calls directly, so coverage-guided
	// mutation is the only way fuzzing will ever reach it.
	FindingUnreachableFunction
)

// String names a FindingKind the way a report or log line would.
func (k FindingKind) String() string {
	switch k {
	case FindingPrecisionLoss:
		return "PrecisionLoss"
	case FindingUnboundedBackwardJump:
		return "UnboundedBackwardJump"
	case FindingUnreachableFunction:
		return "UnreachableFunction"
	default:
		return "Unknown"
	}
}

// Finding is one static-analysis observation about a module, independent of any executed input.
type Finding struct {
	Kind     FindingKind
	Function string
	Detail   string
}

// Analyze inspects every function of module and returns the findings the fuzz harness should log before it starts
// executing, grouped by function in module order: within a function, shift and backward-jump findings appear in
// instruction order, followed by its UnreachableFunction finding, if any. entryNames is the set of function names the seeded ABIs call directly;
// functions outside it are flagged as reachable only through coverage-guided mutation from another entry point.
func Analyze(module *moveuvm.Module, entryNames map[string]struct{}) []Finding {
	var findings []Finding
	for _, fn := range module.Functions {
		findings = append(findings, analyzeFunction(fn)...)
		if _, ok := entryNames[fn.Name]; !ok {
			findings = append(findings, Finding{
				Kind:     FindingUnreachableFunction,
				Function: fn.Name,
				Detail:   "no seeded ABI calls this function directly",
			})
		}
	}
	return findings
}

func analyzeFunction(fn moveuvm.Function) []Finding {
	var findings []Finding
	guarded := false // saw a JumpIfFalse before this point, so a later backward jump is plausibly bounded.
	for pc, ins := range fn.Code {
		switch ins.Op {
		case moveuvm.OpShl:
			findings = append(findings, Finding{
				Kind:     FindingPrecisionLoss,
				Function: fn.Name,
				Detail:   "left-shift result is truncated to a fixed bit width and can silently lose high bits",
			})
		case moveuvm.OpJumpIfFalse:
			guarded = true
		case moveuvm.OpJump:
			if !guarded && int(ins.Operand) <= pc {
				findings = append(findings, Finding{
					Kind:     FindingUnboundedBackwardJump,
					Function: fn.Name,
					Detail:   "unconditional backward jump with no preceding conditional branch in this function",
				})
			}
		}
	}
	return findings
}
