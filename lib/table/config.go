package table

import (
	"fmt"
	"github.com/ValentinKolb/dPhil/lib/ring"
	"strings"
	"time"
)

// Config holds all parameters of a dining table.
type Config struct {
	// Agents is the number of agents and resources around the table
	Agents int
	// Protocol selects the acquisition protocol
	Protocol ring.Protocol
	// Fairness enables the fairness gate
	Fairness bool

	// ThinkTime is how long an agent thinks before it gets hungry
	ThinkTime time.Duration
	// EatTime is how long an agent holds its resources
	EatTime time.Duration
	// YieldTime is how long an agent ahead of the average waits before asking again
	YieldTime time.Duration

	// MealLimit lets every agent leave after that many meals (0 = unlimited)
	MealLimit uint64
	// Duration requests a shutdown after the given time (0 = run until Shutdown)
	Duration time.Duration
	// Grace is how long Run waits for agents after a shutdown before it destroys
	// the ring, failing agents that are stuck in an acquisition (0 = wait forever)
	Grace time.Duration
}

// DefaultConfig returns the configuration of the classic five agent table.
func DefaultConfig() Config {
	return Config{
		Agents:    5,
		Protocol:  ring.ProtocolAtomic,
		Fairness:  true,
		ThinkTime: time.Second,
		EatTime:   time.Second,
		YieldTime: 2 * time.Second,
		Grace:     10 * time.Second,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Agents < 2 {
		return fmt.Errorf("invalid agent count %d: a table needs at least 2 agents", c.Agents)
	}
	if _, err := ring.ParseProtocol(string(c.Protocol)); err != nil {
		return err
	}
	if c.ThinkTime < 0 || c.EatTime < 0 || c.YieldTime < 0 {
		return fmt.Errorf("think, eat and yield times must not be negative")
	}
	if c.Duration < 0 || c.Grace < 0 {
		return fmt.Errorf("duration and grace must not be negative")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	limit := func(v fmt.Stringer, unset bool) string {
		if unset {
			return "none"
		}
		return v.String()
	}

	addSection("Table")
	addField("Agents", fmt.Sprintf("%d", c.Agents))
	addField("Protocol", string(c.Protocol))
	addField("Fairness Gate", fmt.Sprintf("%t", c.Fairness))

	addSection("Timing")
	addField("Think Time", c.ThinkTime.String())
	addField("Eat Time", c.EatTime.String())
	addField("Yield Time", c.YieldTime.String())

	addSection("Limits")
	if c.MealLimit == 0 {
		addField("Meals per Agent", "none")
	} else {
		addField("Meals per Agent", fmt.Sprintf("%d", c.MealLimit))
	}
	addField("Duration", limit(c.Duration, c.Duration == 0))
	addField("Shutdown Grace", limit(c.Grace, c.Grace == 0))

	return sb.String()
}
