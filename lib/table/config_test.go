package table

import (
	"testing"
	"time"

	"github.com/ValentinKolb/dPhil/lib/ring"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"single agent", func(c *Config) { c.Agents = 1 }},
		{"no agents", func(c *Config) { c.Agents = 0 }},
		{"unknown protocol", func(c *Config) { c.Protocol = "ticket" }},
		{"negative think time", func(c *Config) { c.ThinkTime = -time.Second }},
		{"negative eat time", func(c *Config) { c.EatTime = -time.Second }},
		{"negative yield time", func(c *Config) { c.YieldTime = -time.Second }},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }},
		{"negative grace", func(c *Config) { c.Grace = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			require.Error(t, c.Validate())
		})
	}

	// two agents is the smallest ring
	c := DefaultConfig()
	c.Agents = 2
	c.Protocol = ring.ProtocolGuarded
	require.NoError(t, c.Validate())
}

func TestConfigString(t *testing.T) {
	c := DefaultConfig()
	c.MealLimit = 7
	s := c.String()

	require.Contains(t, s, "TABLE")
	require.Contains(t, s, "TIMING")
	require.Contains(t, s, "LIMITS")
	require.Contains(t, s, "atomic")
	require.Contains(t, s, "Meals per Agent")
	require.Contains(t, s, ": 7\n")
	require.Contains(t, s, "Duration")
	require.Contains(t, s, ": none\n")
}
