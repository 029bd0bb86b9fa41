package table

import (
	"github.com/ValentinKolb/dPhil/lib/fairness"
	"github.com/ValentinKolb/dPhil/lib/ring"
	"time"
)

// runAgent is the lifecycle loop of one agent:
//
//	Thinking --gate passes--> Hungry --pair acquired--> Eating --meal done--> Thinking
//	Thinking --gate fails--> Thinking (yield, ask again)
//
// The shutdown flag is checked once per cycle, right before the agent would
// become hungry. Sleeps while thinking or yielding end early on shutdown; an
// agent that is hungry or eating always completes its meal.
func (t *Table) runAgent(id int) error {
	n := t.config.Agents
	left, right := ring.Left(id, n), ring.Right(id, n)
	meals := uint64(0)

	for {
		t.setState(id, StateThinking, meals, nil)
		t.emit(Event{Agent: id, Kind: EventThinking, Meals: meals})
		Logger.Infof("Agent %d is thinking", id)
		if !t.pause(t.config.ThinkTime) {
			return t.leave(id, meals)
		}

		// ask the fairness gate until it lets us through
		var decision fairness.Decision
		for {
			var ok bool
			decision, ok = t.tryEnterHungry(id)
			if !ok {
				return t.leave(id, meals)
			}
			Logger.Infof("Agent %d: meals %d, avg meals %d", id, decision.Meals, decision.Average)
			if decision.Allowed {
				break
			}
			t.emit(Event{Agent: id, Kind: EventYielding, Meals: decision.Meals, Average: decision.Average})
			Logger.Infof("Agent %d is ahead of the others and yields for %v", id, t.config.YieldTime)
			if !t.pause(t.config.YieldTime) {
				return t.leave(id, meals)
			}
		}

		t.emit(Event{Agent: id, Kind: EventHungry, Meals: decision.Meals, Average: decision.Average})
		Logger.Infof("Agent %d is hungry", id)

		hungrySince := time.Now()
		if err := t.acq.AcquirePair(id); err != nil {
			return t.fail(id, "acquire_pair", meals, err)
		}
		t.stats.hungerWait.UpdateSince(hungrySince)

		t.setState(id, StateEating, meals, nil)
		t.emit(Event{Agent: id, Kind: EventEating, Meals: meals})
		Logger.Infof("Agent %d took left resource %d and right resource %d and is eating", id, left, right)
		time.Sleep(t.config.EatTime)

		total := t.tracker.RecordMeal(id)
		meals++
		t.stats.mealCounters[id].Inc()

		t.emit(Event{Agent: id, Kind: EventReleasing, Meals: meals})
		Logger.Infof("Agent %d puts away left resource %d and right resource %d (meal %d, %d in total)", id, left, right, meals, total)
		if err := t.acq.ReleasePair(id); err != nil {
			return t.fail(id, "release_pair", meals, err)
		}

		if t.config.MealLimit > 0 && meals >= t.config.MealLimit {
			t.setState(id, StateThinking, meals, nil)
			Logger.Infof("Agent %d reached the limit of %d meals", id, t.config.MealLimit)
			return t.leave(id, meals)
		}
	}
}

// tryEnterHungry checks the shutdown flag and the fairness gate. If the agent
// may eat, it is marked hungry before the shutdown lock is released, so an
// agent that is not hungry when Shutdown returns never becomes hungry again.
// ok is false if the table is shutting down.
func (t *Table) tryEnterHungry(id int) (decision fairness.Decision, ok bool) {
	t.shutdownMu.RLock()
	defer t.shutdownMu.RUnlock()

	if t.stopping.Load() {
		return decision, false
	}
	decision = t.tracker.MayAttempt(id)
	if decision.Allowed {
		t.setState(id, StateHungry, decision.Meals, nil)
	}
	return decision, true
}

// pause sleeps for d and reports false if the sleep was cut short by a shutdown.
func (t *Table) pause(d time.Duration) bool {
	if d <= 0 {
		return !t.stopping.Load()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.stopCh:
		return false
	}
}

// leave terminates the agent normally.
func (t *Table) leave(id int, meals uint64) error {
	t.tracker.Retire(id)
	t.setState(id, StateDone, meals, nil)
	t.emit(Event{Agent: id, Kind: EventDone, Meals: meals})
	Logger.Infof("Agent %d leaves the table after %d meals", id, meals)
	return nil
}

// fail terminates the agent after a protocol failure. Resources the agent may
// still hold are not released: the protocol state can no longer be trusted.
func (t *Table) fail(id int, op string, meals uint64, err error) error {
	agentErr := &AgentError{Agent: id, Op: op, Err: err}
	t.tracker.Retire(id)
	t.setState(id, StateFailed, meals, agentErr)
	t.emit(Event{Agent: id, Kind: EventFailed, Meals: meals, Err: agentErr})
	Logger.Errorf("Agent %d: %s failed: %v", id, op, err)
	return agentErr
}
