package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEdgeIndexDeterministic(t *testing.T) {
	idx1, next1 := EdgeIndex(42, 7, 0)
	idx2, next2 := EdgeIndex(42, 7, 0)
	assert.Equal(t, idx1, idx2)
	assert.Equal(t, next1, next2)
	assert.Less(t, idx1, uint32(MapSize))
}

func TestEdgeIndexHistorySensitive(t *testing.T) {
	idxFresh, _ := EdgeIndex(42, 7, 0)
	idxWithHistory, _ := EdgeIndex(42, 7, 99)
	assert.NotEqual(t, idxFresh, idxWithHistory)
}

func TestPathIDDeterministicAndOrderSensitive(t *testing.T) {
	a := PathID([]uint64{1, 2, 3})
	b := PathID([]uint64{1, 2, 3})
	c := PathID([]uint64{3, 2, 1})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPathIDEmptyPathIsOffsetBasis(t *testing.T) {
	assert.EqualValues(t, uint64(fnvOffset64), PathID(nil))
}

func TestCumulativeCoverageMergeNovelty(t *testing.T) {
	c := NewCumulativeCoverage()

	var run1 EdgeMap
	run1[10] = 1
	assert.True(t, c.Merge(&run1))
	assert.Equal(t, 1, c.Count())

	// The same edge again is not novel.
	var run2 EdgeMap
	run2[10] = 1
	assert.False(t, c.Merge(&run2))
	assert.Equal(t, 1, c.Count())

	// A distinct edge is novel.
	var run3 EdgeMap
	run3[10] = 1
	run3[20] = 1
	assert.True(t, c.Merge(&run3))
	assert.Equal(t, 2, c.Count())
}

func TestCumulativeCoverageNovelOnHigherHitCount(t *testing.T) {
	c := NewCumulativeCoverage()

	var run1 EdgeMap
	run1[10] = 1
	assert.True(t, c.Merge(&run1))

	// Same edge, no harder: not novel.
	var run2 EdgeMap
	run2[10] = 1
	assert.False(t, c.Merge(&run2))

	// Same edge, hit much harder this time: novel, per-cell count strictly increases.
	var run3 EdgeMap
	run3[10] = 5
	assert.True(t, c.Merge(&run3))

	// Same count again: not novel.
	var run4 EdgeMap
	run4[10] = 5
	assert.False(t, c.Merge(&run4))
}

func TestEdgeMapSaturates(t *testing.T) {
	var m EdgeMap
	for i := 0; i < 300; i++ {
		m.HitEdge(5)
	}
	assert.Equal(t, byte(255), m[5])
}
