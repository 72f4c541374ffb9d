// Package chain implements an in-memory, deterministic stand-in for a blockchain's global state: the single
// published module under test plus the resource storage it reads and writes. There is no consensus, no block
// production, and no persistence; state exists only for the lifetime of the fuzzing process.
package chain

import (
	"sync"

	"github.com/Masterminds/semver"
	"github.com/crytic/movedusa/moveuvm"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrAlreadyPublished is returned by Publish if a module has already been published to this MockState. Publication
// is a one-time setup step, not a runtime operation available to fuzzed inputs.
var ErrAlreadyPublished = errors.New("a module is already published to this chain state")

// ErrNotPublished is returned by MockState methods that require a module to have been published first.
var ErrNotPublished = errors.New("no module has been published to this chain state")

// ErrIncompatibleVersion is returned by Publish when a module's MinVMVersion constraint is not satisfied by
// moveuvm.VMVersion.
var ErrIncompatibleVersion = errors.New("module requires a VM version this build does not satisfy")

// MockState is an in-memory blockchain: it holds exactly one published module and the key/value resource storage
// that module's functions read and write. It is not safe for concurrent use by multiple goroutines executing
// transactions simultaneously, matching the fuzzer's single-threaded execution model; the mutex below guards only
// against incidental concurrent inspection (e.g. a progress-reporting goroutine reading storage size).
type MockState struct {
	mu      sync.Mutex
	module  *moveuvm.Module
	storage map[storageKey]*uint256.Int
}

type storageKey struct {
	addr moveuvm.Address
	key  uint64
}

// NewMockState constructs an empty chain state with no module published.
func NewMockState() *MockState {
	return &MockState{storage: make(map[storageKey]*uint256.Int)}
}

// Publish installs module as the one and only module this chain state will ever execute. It may be called exactly
// once; a second call returns ErrAlreadyPublished. A MockState performs none of a real chain's bytecode
// verification (that is the concern of the absent real Move VM), but it does honor a module's declared
// MinVMVersion constraint against moveuvm.VMVersion, the one piece of "verification" a real publish step could
// not skip either.
func (s *MockState) Publish(module *moveuvm.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.module != nil {
		return ErrAlreadyPublished
	}
	if module.MinVMVersion != "" {
		constraint, err := semver.NewConstraint(module.MinVMVersion)
		if err != nil {
			return errors.Wrapf(err, "parsing module min VM version constraint %q", module.MinVMVersion)
		}
		vmVersion, err := semver.NewVersion(moveuvm.VMVersion)
		if err != nil {
			return errors.Wrap(err, "parsing embedded VM version")
		}
		if !constraint.Check(vmVersion) {
			return errors.Wrapf(ErrIncompatibleVersion, "module requires %q, VM is %q", module.MinVMVersion, moveuvm.VMVersion)
		}
	}
	s.module = module
	return nil
}

// Module returns the published module, or ErrNotPublished if none has been published yet.
func (s *MockState) Module() (*moveuvm.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.module == nil {
		return nil, ErrNotPublished
	}
	return s.module, nil
}

// Get implements moveuvm.State, reading a resource value from committed storage.
func (s *MockState) Get(addr moveuvm.Address, key uint64) (*uint256.Int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.storage[storageKey{addr: addr, key: key}]
	return v, ok
}

// Commit applies a batch of writes produced by a successful call. Writes from a call that aborted or crashed must
// never reach this method; the executor is responsible for discarding them.
func (s *MockState) Commit(writes []moveuvm.PendingWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		s.storage[storageKey{addr: w.Address, key: w.Key}] = w.Value
	}
}

// StorageSize returns the number of resource slots currently committed, exposed for progress logging.
func (s *MockState) StorageSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.storage)
}
