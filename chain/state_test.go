package chain

import (
	"testing"

	"github.com/crytic/movedusa/moveuvm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOnlyOnce(t *testing.T) {
	s := NewMockState()
	m := &moveuvm.Module{Name: "m"}
	require.NoError(t, s.Publish(m))
	require.ErrorIs(t, s.Publish(m), ErrAlreadyPublished)
}

func TestModuleBeforePublishFails(t *testing.T) {
	s := NewMockState()
	_, err := s.Module()
	require.ErrorIs(t, err, ErrNotPublished)
}

func TestPublishRejectsUnsatisfiableVersionConstraint(t *testing.T) {
	s := NewMockState()
	m := &moveuvm.Module{Name: "m", MinVMVersion: ">= 99.0.0"}
	err := s.Publish(m)
	require.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestPublishAcceptsSatisfiableVersionConstraint(t *testing.T) {
	s := NewMockState()
	m := &moveuvm.Module{Name: "m", MinVMVersion: ">= 1.0.0"}
	require.NoError(t, s.Publish(m))
}

func TestCommitAppliesWrites(t *testing.T) {
	s := NewMockState()
	addr := moveuvm.Address{9}

	_, ok := s.Get(addr, 1)
	assert.False(t, ok)

	s.Commit([]moveuvm.PendingWrite{{Address: addr, Key: 1, Value: uint256.NewInt(100)}})

	v, ok := s.Get(addr, 1)
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(100), v)
	assert.Equal(t, 1, s.StorageSize())
}
