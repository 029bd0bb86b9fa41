package table

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dPhil/lib/ring"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func fastConfig(protocol ring.Protocol) Config {
	return Config{
		Agents:    5,
		Protocol:  protocol,
		Fairness:  true,
		ThinkTime: time.Millisecond,
		EatTime:   time.Millisecond,
		YieldTime: time.Millisecond,
	}
}

// invariants checks mutual exclusion between neighbours and the fairness
// bound at every acquisition attempt.
type invariants struct {
	mu         sync.Mutex
	n          int
	eating     map[int]bool
	maxEating  int
	violations []string

	onEating func(eating int)
}

func newInvariants(n int) *invariants {
	return &invariants{n: n, eating: make(map[int]bool)}
}

func (inv *invariants) observe(e Event) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	switch e.Kind {
	case EventHungry:
		if e.Meals > e.Average {
			inv.violations = append(inv.violations, fmt.Sprintf("agent %d attempted with %d meals, avg %d", e.Agent, e.Meals, e.Average))
		}
	case EventEating:
		for _, nb := range []int{ring.LeftNeighbor(e.Agent, inv.n), ring.RightNeighbor(e.Agent, inv.n)} {
			if inv.eating[nb] {
				inv.violations = append(inv.violations, fmt.Sprintf("agents %d and %d eat at the same time", e.Agent, nb))
			}
		}
		inv.eating[e.Agent] = true
		if len(inv.eating) > inv.maxEating {
			inv.maxEating = len(inv.eating)
		}
		if inv.onEating != nil {
			inv.onEating(len(inv.eating))
		}
	case EventReleasing, EventFailed:
		delete(inv.eating, e.Agent)
	}
}

func (inv *invariants) check(t *testing.T) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	require.Empty(t, inv.violations)
	require.LessOrEqual(t, inv.maxEating, inv.n/2)
}

type runResult struct {
	report *Report
	err    error
}

func runAsync(ctx context.Context, tbl *Table) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		r, err := tbl.Run(ctx)
		done <- runResult{r, err}
	}()
	return done
}

func waitRun(t *testing.T, done <-chan runResult) *Report {
	t.Helper()
	select {
	case res := <-done:
		require.NoError(t, res.err)
		return res.report
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for the table to finish")
		return nil
	}
}

func requireFree(t *testing.T, tbl *Table) {
	t.Helper()
	for r, h := range tbl.Holders() {
		require.Equalf(t, -1, h, "resource %d still held", r)
	}
}

// faultyAcquirer wraps a protocol and fails selected calls
type faultyAcquirer struct {
	ring.IAcquirer
	failAcquire int
	failRelease int
	acquired    atomic.Bool
	released    atomic.Bool
}

func (f *faultyAcquirer) AcquirePair(agent int) error {
	if agent == f.failAcquire && f.acquired.CompareAndSwap(false, true) {
		return ring.NewError(ring.RetCRemoved, "acquire", agent, "injected failure")
	}
	return f.IAcquirer.AcquirePair(agent)
}

func (f *faultyAcquirer) ReleasePair(agent int) error {
	if agent == f.failRelease && f.released.CompareAndSwap(false, true) {
		return ring.NewError(ring.RetCRemoved, "release", agent, "injected failure")
	}
	return f.IAcquirer.ReleasePair(agent)
}

func forEachProtocol(t *testing.T, fn func(t *testing.T, p ring.Protocol)) {
	for _, p := range ring.Protocols {
		t.Run(string(p), func(t *testing.T) {
			fn(t, p)
		})
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestNewTable(t *testing.T) {
	r := require.New(t)

	cfg := fastConfig(ring.ProtocolAtomic)
	cfg.Agents = 1
	_, err := NewTable(cfg)
	r.Error(err)

	cfg = fastConfig("ticket")
	_, err = NewTable(cfg)
	r.Error(err)

	acq, err := ring.NewGuardedAcquirer(3)
	r.NoError(err)
	_, err = NewTable(fastConfig(ring.ProtocolAtomic), WithAcquirer(acq))
	r.ErrorContains(err, "3 resources")

	tbl, err := NewTable(fastConfig(ring.ProtocolGuarded))
	r.NoError(err)
	r.NotEmpty(tbl.RunID())
	for _, s := range tbl.Status() {
		r.Equal(StateThinking, s.State)
	}
	requireFree(t, tbl)
}

// TestEqualMeals runs five agents for ten meals each
func TestEqualMeals(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.MealLimit = 10

		inv := newInvariants(cfg.Agents)
		tbl, err := NewTable(cfg, WithObserver(inv.observe))
		r.NoError(err)

		report := waitRun(t, runAsync(context.Background(), tbl))
		inv.check(t)

		r.Equal(cfg.Agents, report.Terminated)
		r.Empty(report.Failed())
		r.Equal(p, report.Protocol)
		r.True(report.FairnessGate)

		var sum, min, max uint64 = 0, report.Agents[0].Meals, report.Agents[0].Meals
		for _, a := range report.Agents {
			sum += a.Meals
			if a.Meals < min {
				min = a.Meals
			}
			if a.Meals > max {
				max = a.Meals
			}
			r.Equal(0, a.ExitStatus())
		}
		r.LessOrEqual(max-min, uint64(1))
		r.Equal(uint64(10), max)
		r.Equal(report.TotalMeals, sum)
		r.Equal(uint64(cfg.Agents*10), report.TotalMeals)
		r.Equal(int64(report.TotalMeals), report.HungerWait.Count)
		r.Equal(1.0, report.Fairness.Quality)

		for _, s := range tbl.Status() {
			r.Equal(StateDone, s.State)
		}
		requireFree(t, tbl)

		var buf bytes.Buffer
		tbl.Metrics().WritePrometheus(&buf)
		r.Contains(buf.String(), `dphil_meals_total{agent="0"} 10`)
		r.Contains(buf.String(), `dphil_agents{state="done"} 5`)
	})
}

// TestFairnessBound runs an unbounded table and checks that no agent ever
// attempts to eat while it is ahead of the average
func TestFairnessBound(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.Duration = 300 * time.Millisecond

		inv := newInvariants(cfg.Agents)
		tbl, err := NewTable(cfg, WithObserver(inv.observe))
		r.NoError(err)

		report := waitRun(t, runAsync(context.Background(), tbl))
		inv.check(t)

		r.Equal(cfg.Agents, report.Terminated)
		r.Greater(report.TotalMeals, uint64(0))
		avg := report.TotalMeals / uint64(cfg.Agents)
		for _, a := range report.Agents {
			r.LessOrEqualf(a.Meals, avg+1, "agent %d ate %d meals, avg %d", a.ID, a.Meals, avg)
		}
	})
}

// TestMealSpread runs an unbounded table for a fixed time. The gate keeps the
// meal counts of any two agents within one of each other.
func TestMealSpread(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.ThinkTime = 10 * time.Millisecond
		cfg.EatTime = 10 * time.Millisecond
		cfg.YieldTime = 20 * time.Millisecond
		cfg.Duration = 200 * time.Millisecond

		inv := newInvariants(cfg.Agents)
		tbl, err := NewTable(cfg, WithObserver(inv.observe))
		r.NoError(err)

		report := waitRun(t, runAsync(context.Background(), tbl))
		inv.check(t)
		r.Empty(report.Failed())

		meals := make([]uint64, len(report.Agents))
		min, max := report.Agents[0].Meals, report.Agents[0].Meals
		for i, a := range report.Agents {
			meals[i] = a.Meals
			if a.Meals < min {
				min = a.Meals
			}
			if a.Meals > max {
				max = a.Meals
			}
		}
		r.Greater(min, uint64(0), "meals %v", meals)
		r.LessOrEqualf(max-min, uint64(1), "meals %v", meals)
	})
}

// TestShutdownWhileEating requests a shutdown while two agents eat. Agents that
// are hungry or eating finish their meal, thinking agents leave at once.
func TestShutdownWhileEating(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.ThinkTime = 20 * time.Millisecond
		cfg.EatTime = 300 * time.Millisecond
		cfg.YieldTime = 5 * time.Millisecond

		twoEating := make(chan struct{}, 1)
		inv := newInvariants(cfg.Agents)
		inv.onEating = func(eating int) {
			if eating >= 2 {
				select {
				case twoEating <- struct{}{}:
				default:
				}
			}
		}

		tbl, err := NewTable(cfg, WithObserver(inv.observe))
		r.NoError(err)
		done := runAsync(context.Background(), tbl)

		select {
		case <-twoEating:
		case <-time.After(5 * time.Second):
			t.Fatal("two agents never ate at the same time")
		}

		tbl.Shutdown()
		tbl.Shutdown()
		r.True(tbl.ShuttingDown())
		snapshot := tbl.Status()

		report := waitRun(t, done)
		inv.check(t)
		r.Equal(cfg.Agents, report.Terminated)
		r.Empty(report.Failed())

		eating := 0
		for _, s := range snapshot {
			final := report.Agents[s.ID].Meals
			switch s.State {
			case StateThinking:
				r.Equalf(s.Meals, final, "thinking agent %d must not eat after shutdown", s.ID)
			case StateHungry, StateEating:
				r.Equalf(s.Meals+1, final, "agent %d must finish its meal", s.ID)
				if s.State == StateEating {
					eating++
				}
			}
		}
		r.GreaterOrEqual(eating, 1)
		requireFree(t, tbl)
	})
}

// TestAgentFailure injects an acquisition failure for one agent. It has to
// terminate with a diagnostic while the others go on eating.
func TestAgentFailure(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.MealLimit = 3

		inner, err := ring.New(p, cfg.Agents)
		r.NoError(err)
		acq := &faultyAcquirer{IAcquirer: inner, failAcquire: 2, failRelease: -1}

		inv := newInvariants(cfg.Agents)
		tbl, err := NewTable(cfg, WithAcquirer(acq), WithObserver(inv.observe))
		r.NoError(err)

		report := waitRun(t, runAsync(context.Background(), tbl))
		inv.check(t)

		r.Equal(cfg.Agents, report.Terminated)
		failed := report.Failed()
		r.Len(failed, 1)
		r.Equal(2, failed[0].ID)
		r.Equal(1, failed[0].ExitStatus())
		r.Equal(uint64(0), failed[0].Meals)
		r.ErrorIs(failed[0].Err, ring.ErrRemoved)
		r.ErrorContains(failed[0].Err, "agent 2: acquire_pair failed")

		var agentErr *AgentError
		r.True(errors.As(failed[0].Err, &agentErr))
		r.Equal("acquire_pair", agentErr.Op)

		for _, a := range report.Agents {
			if a.ID == 2 {
				continue
			}
			r.Equalf(uint64(3), a.Meals, "agent %d", a.ID)
			r.NoError(a.Err)
		}
		r.Equal(StateFailed, tbl.Status()[2].State)
		r.Contains(report.String(), "Agent 2: ate 0 meals, failed")
	})
}

// TestGraceDestroysStuckRing lets a release fail so that the resources of agent 0
// are never returned. After the grace period the ring is destroyed and the
// agents stuck waiting for them fail instead of blocking forever.
func TestGraceDestroysStuckRing(t *testing.T) {
	forEachProtocol(t, func(t *testing.T, p ring.Protocol) {
		r := require.New(t)
		cfg := fastConfig(p)
		cfg.Fairness = false
		cfg.Duration = 100 * time.Millisecond
		cfg.Grace = 200 * time.Millisecond

		inner, err := ring.New(p, cfg.Agents)
		r.NoError(err)
		acq := &faultyAcquirer{IAcquirer: inner, failAcquire: -1, failRelease: 0}

		tbl, err := NewTable(cfg, WithAcquirer(acq))
		r.NoError(err)

		report := waitRun(t, runAsync(context.Background(), tbl))
		r.Equal(cfg.Agents, report.Terminated)
		r.Equal(1, report.Agents[0].ExitStatus())
		r.ErrorContains(report.Agents[0].Err, "release_pair")
		for _, a := range report.Failed() {
			if a.ID != 0 {
				r.ErrorIs(a.Err, ring.ErrRemoved)
			}
		}
	})
}

func TestContextCancel(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig(ring.ProtocolGuarded)
	tbl, err := NewTable(cfg)
	r.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, tbl)
	time.Sleep(50 * time.Millisecond)
	cancel()

	report := waitRun(t, done)
	r.True(tbl.ShuttingDown())
	r.Equal(cfg.Agents, report.Terminated)
	r.Empty(report.Failed())

	_, err = tbl.Run(context.Background())
	r.Error(err)
}

func TestFairnessDisabled(t *testing.T) {
	r := require.New(t)
	cfg := fastConfig(ring.ProtocolAtomic)
	cfg.Fairness = false
	cfg.MealLimit = 5

	var yields atomic.Int64
	inv := newInvariants(cfg.Agents)
	tbl, err := NewTable(cfg, WithObserver(func(e Event) {
		if e.Kind == EventYielding {
			yields.Add(1)
		}
		inv.observe(e)
	}))
	r.NoError(err)

	report := waitRun(t, runAsync(context.Background(), tbl))
	r.Equal(int64(0), yields.Load())
	r.False(report.FairnessGate)
	r.Contains(report.String(), "Fairness (gate off)")
	r.Equal(uint64(25), report.TotalMeals)
	for _, a := range report.Agents {
		r.Equal(uint64(5), a.Meals)
	}
}
