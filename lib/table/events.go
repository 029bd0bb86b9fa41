package table

import (
	"fmt"
	"time"
)

// State is the lifecycle state of an agent.
type State int

const (
	StateThinking State = iota
	StateHungry
	StateEating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateThinking:
		return "thinking"
	case StateHungry:
		return "hungry"
	case StateEating:
		return "eating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EventKind identifies a transition of the agent state machine.
type EventKind int

const (
	EventThinking  EventKind = iota // agent starts thinking
	EventYielding                   // fairness gate failed, agent waits
	EventHungry                     // fairness gate passed, agent requests its resources
	EventEating                     // agent holds both resources
	EventReleasing                  // agent finished its meal and returns its resources
	EventDone                       // agent left the table
	EventFailed                     // the acquisition protocol failed for the agent
)

func (k EventKind) String() string {
	switch k {
	case EventThinking:
		return "thinking"
	case EventYielding:
		return "yielding"
	case EventHungry:
		return "hungry"
	case EventEating:
		return "eating"
	case EventReleasing:
		return "releasing"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a single transition of an agent.
// Meals and Average are the values the fairness decision was based on
// (for EventHungry and EventYielding) or the agent's meal count otherwise.
type Event struct {
	Agent   int
	Kind    EventKind
	Meals   uint64
	Average uint64
	Time    time.Time
	Err     error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %d %s: %v", e.Agent, e.Kind, e.Err)
	}
	return fmt.Sprintf("agent %d %s (meals %d, avg %d)", e.Agent, e.Kind, e.Meals, e.Average)
}

// Observer receives every event synchronously from the agent goroutine that
// caused it. It is called concurrently by different agents and must not block
// for long; it must not call Table.Run.
type Observer func(Event)

// AgentStatus is the last known status of an agent.
// Meals is updated when the agent returns to thinking after a meal, so an
// agent that is eating right now does not count its current meal yet.
type AgentStatus struct {
	ID    int
	State State
	Meals uint64
	Err   error
}

// AgentError is returned for an agent whose acquisition protocol failed.
type AgentError struct {
	Agent int
	Op    string
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %d: %s failed: %v", e.Agent, e.Op, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
