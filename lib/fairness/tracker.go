package fairness

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
)

var Logger = logger.GetLogger("fairness")

// Decision is the result of a fairness check.
type Decision struct {
	Allowed bool
	Meals   uint64 // meals of the agent when the decision was made
	Average uint64 // floor(total/n) when the decision was made
}

// Tracker counts meals per agent and in total.
//
// Agents that leave the table (after a failure or when they reached their
// meal limit) are retired: their meals stay in the global counter, but they no
// longer take part in the average used by the gate. Until the first agent is
// retired the gate average is exactly total/n.
//
// Thread-safety: all methods are safe for concurrent use. Counters are only
// read and written with mu held.
type Tracker struct {
	mu    sync.Mutex
	meals []uint64
	total uint64
	gate  bool

	retired     []bool
	activeCount uint64
	activeTotal uint64
}

// Option configures a Tracker
type Option func(*Tracker)

// WithGate enables or disables the fairness gate. With the gate disabled
// MayAttempt always allows, but meals are still counted.
func WithGate(enabled bool) Option {
	return func(t *Tracker) {
		t.gate = enabled
	}
}

// NewTracker creates a tracker for n agents with the gate enabled.
func NewTracker(n int, opts ...Option) (*Tracker, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid agent count %d", n)
	}
	t := &Tracker{
		meals:       make([]uint64, n),
		gate:        true,
		retired:     make([]bool, n),
		activeCount: uint64(n),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MayAttempt decides whether the agent may try to acquire its resources now.
// It panics for agent ids outside [0, n).
func (t *Tracker) MayAttempt(agent int) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := Decision{
		Meals:   t.meals[agent],
		Average: t.average(),
	}
	d.Allowed = !t.gate || d.Meals <= d.Average
	if !d.Allowed {
		Logger.Debugf("agent %d is ahead (meals %d, avg %d)", agent, d.Meals, d.Average)
	}
	return d
}

// RecordMeal increments the meal count of the agent and the global counter.
// It returns the new global total.
func (t *Tracker) RecordMeal(agent int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meals[agent]++
	t.total++
	if !t.retired[agent] {
		t.activeTotal++
	}
	return t.total
}

// Retire removes the agent from the gate average. Retiring twice is a no-op.
func (t *Tracker) Retire(agent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retired[agent] {
		return
	}
	t.retired[agent] = true
	t.activeCount--
	t.activeTotal -= t.meals[agent]
}

// average returns the integer average over the active agents.
//
// Thread-safety: must be called with t.mu held.
func (t *Tracker) average() uint64 {
	if t.activeCount == 0 {
		return t.total / uint64(len(t.meals))
	}
	return t.activeTotal / t.activeCount
}

// Meals returns the meal count of the agent.
func (t *Tracker) Meals(agent int) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meals[agent]
}

// Total returns the global meal counter.
func (t *Tracker) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Average returns the average used by the gate, total/n (integer division)
// while no agent is retired.
func (t *Tracker) Average() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.average()
}

// GateEnabled reports whether the fairness gate is active.
func (t *Tracker) GateEnabled() bool {
	return t.gate
}

// Snapshot returns a copy of all meal counts together with the total they sum up to.
func (t *Tracker) Snapshot() ([]uint64, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	meals := make([]uint64, len(t.meals))
	copy(meals, t.meals)
	return meals, t.total
}

// Spread computes distribution statistics over the current meal counts.
func (t *Tracker) Spread() Stats {
	meals, _ := t.Snapshot()
	return MealStats(meals)
}
