package ring

import (
	"github.com/lni/dragonboat/v4/logger"
	"sync"
)

var Logger = logger.GetLogger("ring")

// atomicAcquirer implements the atomic dual-acquire protocol. Every resource is
// a binary semaphore of one SemSet and both resources of an agent are taken by a
// single Op call, so partial acquisition is structurally impossible.
type atomicAcquirer struct {
	sems *SemSet

	// held mirrors which agents own their pair. It is only used for
	// observation and to reject releases of pairs that are not held.
	mu   sync.Mutex
	held []bool
}

// NewAtomicAcquirer creates an atomic dual-acquire protocol for a ring of n resources.
func NewAtomicAcquirer(n int) (IAcquirer, error) {
	if err := checkRing(n); err != nil {
		return nil, err
	}
	sems, err := NewSemSet(n, 1)
	if err != nil {
		return nil, err
	}
	return &atomicAcquirer{
		sems: sems,
		held: make([]bool, n),
	}, nil
}

func (a *atomicAcquirer) AcquirePair(agent int) error {
	n := a.sems.Len()
	if err := checkAgent("acquire", agent, n); err != nil {
		return err
	}

	a.mu.Lock()
	if a.held[agent] {
		a.mu.Unlock()
		return NewError(RetCInvalidArgument, "acquire", agent, "agent already holds its pair")
	}
	a.mu.Unlock()

	left, right := Left(agent, n), Right(agent, n)
	if err := a.sems.Op(SemOp{Num: left, Delta: -1}, SemOp{Num: right, Delta: -1}); err != nil {
		return NewError(RetCRemoved, "acquire", agent, err.Error())
	}

	a.mu.Lock()
	a.held[agent] = true
	a.mu.Unlock()

	Logger.Debugf("agent %d took left resource %d and right resource %d", agent, left, right)
	return nil
}

func (a *atomicAcquirer) ReleasePair(agent int) error {
	n := a.sems.Len()
	if err := checkAgent("release", agent, n); err != nil {
		return err
	}

	a.mu.Lock()
	if !a.held[agent] {
		a.mu.Unlock()
		return NewError(RetCNotHeld, "release", agent, "agent does not hold its pair")
	}
	a.held[agent] = false
	a.mu.Unlock()

	left, right := Left(agent, n), Right(agent, n)
	if err := a.sems.Op(SemOp{Num: left, Delta: 1}, SemOp{Num: right, Delta: 1}); err != nil {
		return NewError(RetCRemoved, "release", agent, err.Error())
	}

	Logger.Debugf("agent %d returned left resource %d and right resource %d", agent, left, right)
	return nil
}

// Holders reports the pairs recorded in held. held is set after the semaphores
// were taken and cleared before they are returned, so a pair that is being
// acquired or released may briefly show as free while its semaphores are still
// taken. A resource is never reported for two agents.
func (a *atomicAcquirer) Holders() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return holders(len(a.held), func(agent int) bool { return a.held[agent] })
}

func (a *atomicAcquirer) Size() int {
	return a.sems.Len()
}

func (a *atomicAcquirer) Name() Protocol {
	return ProtocolAtomic
}

func (a *atomicAcquirer) Close() error {
	a.sems.Remove()
	return nil
}
