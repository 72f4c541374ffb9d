package analysis

import (
	"testing"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/stretchr/testify/assert"
)

func TestAnalyzeFlagsShiftAndUnreachable(t *testing.T) {
	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "m")
	b.Function("shifty", moveuvm.TypeU8).LoadArg(0).PushConst(4).Shl(8).Pop().Return().End()
	b.Function("plain").Return().End()
	module := b.Build()

	findings := Analyze(module, map[string]struct{}{"shifty": {}})

	var kinds []FindingKind
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Contains(t, kinds, FindingPrecisionLoss)
	assert.Contains(t, kinds, FindingUnreachableFunction)
}

func TestAnalyzeFlagsUnboundedBackwardJump(t *testing.T) {
	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "m")
	fb := b.Function("loopy")
	top := fb.PC()
	fb.PushConst(1).Pop()
	fb.Jump(top)
	fb.End()
	module := b.Build()

	findings := Analyze(module, map[string]struct{}{"loopy": {}})
	found := false
	for _, f := range findings {
		if f.Kind == FindingUnboundedBackwardJump {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeNoFindingsOnStraightLineGuardedCode(t *testing.T) {
	b := moveuvm.NewBuilder(moveuvm.ZeroAddress, "m")
	b.Function("clean", moveuvm.TypeU8).LoadArg(0).Pop().Return().End()
	module := b.Build()

	findings := Analyze(module, map[string]struct{}{"clean": {}})
	assert.Empty(t, findings)
}
