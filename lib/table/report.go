package table

import (
	"fmt"
	"github.com/ValentinKolb/dPhil/lib/fairness"
	"github.com/ValentinKolb/dPhil/lib/ring"
	"strings"
	"time"
)

// AgentReport is the outcome of one agent.
type AgentReport struct {
	ID    int
	Meals uint64
	// Err is set if the acquisition protocol failed for the agent
	Err error
}

// ExitStatus returns 0 for agents that left normally and 1 for failed agents.
func (a AgentReport) ExitStatus() int {
	if a.Err != nil {
		return 1
	}
	return 0
}

// Report summarizes a finished run.
type Report struct {
	RunID        string
	Protocol     ring.Protocol
	FairnessGate bool
	Agents       []AgentReport
	Terminated   int
	TotalMeals   uint64
	Fairness     fairness.Stats
	HungerWait   WaitStats
	Elapsed      time.Duration
}

// Failed returns the reports of all agents whose protocol failed.
func (r *Report) Failed() []AgentReport {
	var failed []AgentReport
	for _, a := range r.Agents {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	return failed
}

// String returns the final tallies of the run
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run %s (%s protocol, %v)\n", r.RunID, r.Protocol, r.Elapsed.Round(time.Millisecond)))
	for _, a := range r.Agents {
		if a.Err != nil {
			sb.WriteString(fmt.Sprintf("  Agent %d: ate %d meals, failed: %v\n", a.ID, a.Meals, a.Err))
			continue
		}
		sb.WriteString(fmt.Sprintf("  Agent %d: ate %d meals\n", a.ID, a.Meals))
	}
	sb.WriteString(fmt.Sprintf("%d agents terminated, %d meals in total\n", r.Terminated, r.TotalMeals))
	gate := "on"
	if !r.FairnessGate {
		gate = "off"
	}
	sb.WriteString(fmt.Sprintf("Fairness (gate %s): min %.0f, max %.0f, std deviation %.2f, quality %.2f\n",
		gate, r.Fairness.Min, r.Fairness.Max, r.Fairness.StdDeviation, r.Fairness.Quality))
	sb.WriteString(fmt.Sprintf("Hunger wait: mean %v, p95 %v, max %v over %d meals\n",
		r.HungerWait.Mean.Round(time.Microsecond), r.HungerWait.P95.Round(time.Microsecond),
		r.HungerWait.Max.Round(time.Microsecond), r.HungerWait.Count))

	return sb.String()
}

// report builds the report once all agents have left
func (t *Table) report(elapsed time.Duration) *Report {
	meals, total := t.tracker.Snapshot()
	r := &Report{
		RunID:        t.runID,
		Protocol:     t.acq.Name(),
		FairnessGate: t.tracker.GateEnabled(),
		Agents:       make([]AgentReport, len(meals)),
		TotalMeals:   total,
		Fairness:     t.tracker.Spread(),
		HungerWait:   t.stats.waitStats(),
		Elapsed:      elapsed,
	}

	for _, s := range t.Status() {
		r.Agents[s.ID] = AgentReport{
			ID:    s.ID,
			Meals: meals[s.ID],
			Err:   s.Err,
		}
		if s.State == StateDone || s.State == StateFailed {
			r.Terminated++
		}
	}
	return r
}
