package ring

import (
	"fmt"
	"sync"
)

// SemOp is a single operation on one semaphore of a SemSet.
// A negative Delta waits until the semaphore value is at least -Delta and
// then subtracts it; a positive Delta adds to the value.
type SemOp struct {
	Num   int
	Delta int
}

// SemSet is a set of counting semaphores on which a list of operations can be
// performed atomically: either all operations of a call are applied, or the
// caller blocks until they can all be applied at once. No other caller ever
// observes a state in which only part of the operations took effect.
//
// Thread-safety: all methods are safe for concurrent use.
type SemSet struct {
	mu      sync.Mutex
	cond    *sync.Cond
	values  []int
	removed bool
}

// NewSemSet creates a set of n semaphores, each initialized to initial.
func NewSemSet(n, initial int) (*SemSet, error) {
	if n <= 0 {
		return nil, NewError(RetCInvalidArgument, "semset", -1, fmt.Sprintf("invalid semaphore count %d", n))
	}
	if initial < 0 {
		return nil, NewError(RetCInvalidArgument, "semset", -1, fmt.Sprintf("invalid initial value %d", initial))
	}
	s := &SemSet{values: make([]int, n)}
	s.cond = sync.NewCond(&s.mu)
	for i := range s.values {
		s.values[i] = initial
	}
	return s, nil
}

// Op applies all operations atomically, blocking while any of them would make
// a semaphore negative. It fails with RetCRemoved if the set is removed before
// or while waiting, and with RetCInvalidArgument for unknown semaphore numbers.
func (s *SemSet) Op(ops ...SemOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if op.Num < 0 || op.Num >= len(s.values) {
			return NewError(RetCInvalidArgument, "semop", -1, fmt.Sprintf("semaphore %d out of range", op.Num))
		}
	}

	for {
		if s.removed {
			return NewError(RetCRemoved, "semop", -1, "semaphore set removed")
		}
		if s.applicable(ops) {
			break
		}
		s.cond.Wait()
	}

	for _, op := range ops {
		s.values[op.Num] += op.Delta
	}

	// Only increments can unblock someone
	for _, op := range ops {
		if op.Delta > 0 {
			s.cond.Broadcast()
			break
		}
	}
	return nil
}

// applicable reports whether all ops can be applied now. Operations on the same
// semaphore are accumulated, so {0,-1},{0,-1} needs a value of 2.
//
// Thread-safety: must be called with s.mu held.
func (s *SemSet) applicable(ops []SemOp) bool {
	need := make(map[int]int, len(ops))
	for _, op := range ops {
		need[op.Num] += op.Delta
	}
	for num, delta := range need {
		if s.values[num]+delta < 0 {
			return false
		}
	}
	return true
}

// Value returns the current value of semaphore num.
func (s *SemSet) Value(num int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return 0, NewError(RetCRemoved, "getval", -1, "semaphore set removed")
	}
	if num < 0 || num >= len(s.values) {
		return 0, NewError(RetCInvalidArgument, "getval", -1, fmt.Sprintf("semaphore %d out of range", num))
	}
	return s.values[num], nil
}

// Values returns a consistent snapshot of all semaphore values.
func (s *SemSet) Values() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil, NewError(RetCRemoved, "getall", -1, "semaphore set removed")
	}
	values := make([]int, len(s.values))
	copy(values, s.values)
	return values, nil
}

// Len returns the number of semaphores in the set.
func (s *SemSet) Len() int {
	return len(s.values)
}

// Remove destroys the set and wakes all blocked callers, which fail with RetCRemoved.
// Removing twice is a no-op.
func (s *SemSet) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
	s.cond.Broadcast()
}
