package ring

import (
	"sync"
)

// AgentState is the state of an agent in the guarded protocol.
type AgentState int

const (
	Thinking AgentState = iota
	Hungry
	Eating
)

func (s AgentState) String() string {
	switch s {
	case Thinking:
		return "thinking"
	case Hungry:
		return "hungry"
	case Eating:
		return "eating"
	default:
		return "unknown"
	}
}

// guardedAcquirer implements the guarded state-test protocol. A single
// coordinator lock protects the state table. An agent becomes Eating only when
// neither neighbour is Eating; if it cannot, it waits on its private channel
// until a releasing neighbour re-tests it. No agent blocks while holding mu.
type guardedAcquirer struct {
	mu     sync.Mutex
	states []AgentState

	// wake[i] is the private wait primitive of agent i, a binary semaphore
	// that starts taken.
	wake   []chan struct{}
	closed chan struct{}
	once   sync.Once
}

// NewGuardedAcquirer creates a guarded state-test protocol for a ring of n resources.
func NewGuardedAcquirer(n int) (IAcquirer, error) {
	if err := checkRing(n); err != nil {
		return nil, err
	}
	g := &guardedAcquirer{
		states: make([]AgentState, n),
		wake:   make([]chan struct{}, n),
		closed: make(chan struct{}),
	}
	for i := range g.wake {
		g.wake[i] = make(chan struct{}, 1)
	}
	return g, nil
}

func (g *guardedAcquirer) AcquirePair(agent int) error {
	n := len(g.states)
	if err := checkAgent("acquire", agent, n); err != nil {
		return err
	}

	g.mu.Lock()
	if g.isClosed() {
		g.mu.Unlock()
		return NewError(RetCRemoved, "acquire", agent, "coordinator closed")
	}
	if g.states[agent] != Thinking {
		g.mu.Unlock()
		return NewError(RetCInvalidArgument, "acquire", agent, "agent is already "+g.states[agent].String())
	}
	g.states[agent] = Hungry
	g.test(agent)
	g.mu.Unlock()

	select {
	case <-g.wake[agent]:
		Logger.Debugf("agent %d took left resource %d and right resource %d", agent, Left(agent, n), Right(agent, n))
		return nil
	case <-g.closed:
		return NewError(RetCRemoved, "acquire", agent, "coordinator closed while waiting")
	}
}

func (g *guardedAcquirer) ReleasePair(agent int) error {
	n := len(g.states)
	if err := checkAgent("release", agent, n); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isClosed() {
		return NewError(RetCRemoved, "release", agent, "coordinator closed")
	}
	if g.states[agent] != Eating {
		return NewError(RetCNotHeld, "release", agent, "agent is "+g.states[agent].String())
	}

	g.states[agent] = Thinking
	g.test(LeftNeighbor(agent, n))
	g.test(RightNeighbor(agent, n))

	Logger.Debugf("agent %d returned left resource %d and right resource %d", agent, Left(agent, n), Right(agent, n))
	return nil
}

// test lets agent i eat if it is hungry and no neighbour is eating.
//
// Thread-safety: must be called with g.mu held.
func (g *guardedAcquirer) test(i int) {
	n := len(g.states)
	if g.states[i] == Hungry &&
		g.states[LeftNeighbor(i, n)] != Eating &&
		g.states[RightNeighbor(i, n)] != Eating {
		g.states[i] = Eating
		g.wake[i] <- struct{}{}
	}
}

func (g *guardedAcquirer) Holders() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return holders(len(g.states), func(agent int) bool { return g.states[agent] == Eating })
}

func (g *guardedAcquirer) Size() int {
	return len(g.states)
}

func (g *guardedAcquirer) Name() Protocol {
	return ProtocolGuarded
}

func (g *guardedAcquirer) Close() error {
	g.once.Do(func() { close(g.closed) })
	return nil
}

func (g *guardedAcquirer) isClosed() bool {
	select {
	case <-g.closed:
		return true
	default:
		return false
	}
}
