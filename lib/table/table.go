package table

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPhil/lib/fairness"
	"github.com/ValentinKolb/dPhil/lib/ring"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("table")

// Table coordinates n agents around a ring of n resources.
//
// A Table can be run once. It owns the acquisition protocol, the fairness
// tracker and the shutdown flag; each agent receives only its id.
type Table struct {
	config   Config
	runID    string
	acq      ring.IAcquirer
	tracker  *fairness.Tracker
	status   *xsync.MapOf[int, AgentStatus]
	observer Observer
	stats    *tableStats

	// shutdownMu serializes Shutdown against the check-and-become-hungry step
	// of the agents, see tryEnterHungry
	shutdownMu sync.RWMutex
	stopping   atomic.Bool
	stopCh     chan struct{}

	started atomic.Bool
}

// Option configures a Table
type Option func(*Table)

// WithObserver registers a callback that receives every agent transition.
func WithObserver(o Observer) Option {
	return func(t *Table) {
		t.observer = o
	}
}

// WithAcquirer replaces the acquisition protocol selected by Config.Protocol.
// Its size must match Config.Agents.
func WithAcquirer(acq ring.IAcquirer) Option {
	return func(t *Table) {
		t.acq = acq
	}
}

// NewTable creates a table. All primitives are allocated here, so a table that
// was created successfully can always be run.
func NewTable(config Config, opts ...Option) (*Table, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		config: config,
		runID:  uuid.NewString(),
		status: xsync.NewMapOf[int, AgentStatus](),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.acq == nil {
		acq, err := ring.New(config.Protocol, config.Agents)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s protocol: %w", config.Protocol, err)
		}
		t.acq = acq
	} else if t.acq.Size() != config.Agents {
		return nil, fmt.Errorf("acquirer has %d resources, table has %d agents", t.acq.Size(), config.Agents)
	}

	tracker, err := fairness.NewTracker(config.Agents, fairness.WithGate(config.Fairness))
	if err != nil {
		return nil, fmt.Errorf("failed to create fairness tracker: %w", err)
	}
	t.tracker = tracker

	for id := 0; id < config.Agents; id++ {
		t.status.Store(id, AgentStatus{ID: id, State: StateThinking})
	}
	t.stats = newTableStats(t)

	return t, nil
}

// Run starts all agents and blocks until every agent has left the table.
// Cancelling ctx requests a shutdown, as does Config.Duration.
// The returned report lists the outcome of every agent; agent failures do not
// make Run fail.
func (t *Table) Run(ctx context.Context) (*Report, error) {
	if !t.started.CompareAndSwap(false, true) {
		return nil, errors.New("table has already been run")
	}
	defer t.stats.stop()

	Logger.Infof("run %s: %d agents, %s protocol, fairness gate %t", t.runID, t.config.Agents, t.acq.Name(), t.tracker.GateEnabled())
	start := time.Now()

	finished := make(chan struct{})
	go t.watch(ctx, finished)

	var g errgroup.Group
	for id := 0; id < t.config.Agents; id++ {
		id := id
		g.Go(func() error {
			return t.runAgent(id)
		})
	}
	err := g.Wait()
	close(finished)

	if err != nil {
		Logger.Warningf("run %s: at least one agent failed, first failure: %v", t.runID, err)
	}
	if err := t.acq.Close(); err != nil {
		Logger.Warningf("run %s: failed to close %s protocol: %v", t.runID, t.acq.Name(), err)
	}

	report := t.report(time.Since(start))
	Logger.Infof("run %s: %d agents terminated, %d meals in total", t.runID, report.Terminated, report.TotalMeals)
	return report, nil
}

// watch turns context cancellation and the configured duration into a
// shutdown and enforces the grace period afterwards.
func (t *Table) watch(ctx context.Context, finished <-chan struct{}) {
	var deadline <-chan time.Time
	if t.config.Duration > 0 {
		timer := time.NewTimer(t.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
		t.Shutdown()
	case <-deadline:
		Logger.Infof("run %s: duration of %v elapsed", t.runID, t.config.Duration)
		t.Shutdown()
	case <-t.stopCh:
	case <-finished:
		return
	}

	if t.config.Grace == 0 {
		return
	}
	grace := time.NewTimer(t.config.Grace)
	defer grace.Stop()
	select {
	case <-grace.C:
		Logger.Warningf("run %s: agents still waiting after %v, destroying the %s protocol", t.runID, t.config.Grace, t.acq.Name())
		_ = t.acq.Close()
	case <-finished:
	}
}

// Shutdown sets the shutdown flag. Agents that are thinking leave the table at
// once; agents that are hungry or eating finish their meal first. Shutdown does
// not wait for the agents and may be called any number of times.
func (t *Table) Shutdown() {
	t.shutdownMu.Lock()
	defer t.shutdownMu.Unlock()
	if t.stopping.CompareAndSwap(false, true) {
		close(t.stopCh)
		Logger.Infof("run %s: shutdown requested", t.runID)
	}
}

// ShuttingDown reports whether Shutdown was called.
func (t *Table) ShuttingDown() bool {
	return t.stopping.Load()
}

// Status returns the current status of all agents, ordered by id.
func (t *Table) Status() []AgentStatus {
	res := make([]AgentStatus, t.config.Agents)
	t.status.Range(func(id int, s AgentStatus) bool {
		res[id] = s
		return true
	})
	return res
}

// Holders returns the current holder of every resource, -1 for free resources.
func (t *Table) Holders() []int {
	return t.acq.Holders()
}

// Metrics returns the metric set of the table in Prometheus format.
func (t *Table) Metrics() *metrics.Set {
	return t.stats.set
}

// Config returns the configuration of the table.
func (t *Table) Config() Config {
	return t.config
}

// RunID returns the unique id of the table.
func (t *Table) RunID() string {
	return t.runID
}

// emit forwards an event to the observer
func (t *Table) emit(e Event) {
	if t.observer == nil {
		return
	}
	e.Time = time.Now()
	t.observer(e)
}

// setState updates the status registry of the agent
func (t *Table) setState(id int, state State, meals uint64, err error) {
	t.status.Compute(id, func(old AgentStatus, _ bool) (AgentStatus, bool) {
		old.State = state
		old.Meals = meals
		old.Err = err
		return old, false
	})
}
