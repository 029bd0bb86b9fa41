package table

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"time"
)

// tableStats holds the metrics of a table. The fairness tracker and the ring
// stay the source of truth; these are mirrors for monitoring and the report.
type tableStats struct {
	set          *metrics.Set
	mealCounters []*metrics.Counter

	// hungerWait measures how long agents stay hungry before they can eat
	hungerWait gometrics.Timer
}

func newTableStats(t *Table) *tableStats {
	s := &tableStats{
		set:          metrics.NewSet(),
		mealCounters: make([]*metrics.Counter, t.config.Agents),
		hungerWait:   gometrics.NewTimer(),
	}

	for id := range s.mealCounters {
		s.mealCounters[id] = s.set.NewCounter(fmt.Sprintf(`dphil_meals_total{agent="%d"}`, id))
	}

	for _, state := range []State{StateThinking, StateHungry, StateEating, StateDone, StateFailed} {
		state := state
		s.set.NewGauge(fmt.Sprintf(`dphil_agents{state="%s"}`, state), func() float64 {
			count := 0
			t.status.Range(func(_ int, st AgentStatus) bool {
				if st.State == state {
					count++
				}
				return true
			})
			return float64(count)
		})
	}

	s.set.NewGauge("dphil_meals_average", func() float64 {
		return float64(t.tracker.Average())
	})
	s.set.NewGauge(`dphil_hunger_wait_seconds{quantile="0.95"}`, func() float64 {
		return time.Duration(s.hungerWait.Percentile(0.95)).Seconds()
	})

	return s
}

// stop releases the background resources of the timer.
func (s *tableStats) stop() {
	s.hungerWait.Stop()
}

// WaitStats summarizes the time agents spent hungry.
type WaitStats struct {
	Count int64
	Mean  time.Duration
	Max   time.Duration
	P95   time.Duration
}

func (s *tableStats) waitStats() WaitStats {
	snap := s.hungerWait.Snapshot()
	return WaitStats{
		Count: snap.Count(),
		Mean:  time.Duration(snap.Mean()),
		Max:   time.Duration(snap.Max()),
		P95:   time.Duration(snap.Percentile(0.95)),
	}
}
