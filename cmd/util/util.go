package util

import (
	"github.com/ValentinKolb/dPhil/lib/ring"
	"github.com/ValentinKolb/dPhil/lib/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString breaks help text into lines of at most Wrap characters.
// A word longer than Wrap gets a line of its own.
func WrapString(text string) string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= Wrap:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// SetupTableFlags adds the flags of a dining table to a command
func SetupTableFlags(cmd *cobra.Command) {
	defaults := table.DefaultConfig()

	key := "agents"
	cmd.Flags().Int(key, defaults.Agents, WrapString("Number of agents (and resources) around the table, at least 2"))

	key = "protocol"
	cmd.Flags().String(key, string(defaults.Protocol), WrapString("Acquisition protocol: atomic (take both resources in one step) or guarded (wait until both neighbours are not eating)"))

	key = "fairness"
	cmd.Flags().Bool(key, defaults.Fairness, WrapString("Let agents that ate more than the average yield before they get hungry"))

	key = "think"
	cmd.Flags().Duration(key, defaults.ThinkTime, WrapString("How long an agent thinks between two meals"))

	key = "eat"
	cmd.Flags().Duration(key, defaults.EatTime, WrapString("How long an agent eats"))

	key = "yield"
	cmd.Flags().Duration(key, defaults.YieldTime, WrapString("How long an agent ahead of the average waits before it asks again"))

	key = "meals"
	cmd.Flags().Uint64(key, defaults.MealLimit, WrapString("Meals per agent before it leaves the table (0 = unlimited)"))

	key = "duration"
	cmd.Flags().Duration(key, defaults.Duration, WrapString("Request a shutdown after this time (0 = run until interrupted)"))

	key = "grace"
	cmd.Flags().Duration(key, defaults.Grace, WrapString("How long to wait for agents after a shutdown before the ring is destroyed (0 = wait forever)"))
}

// InitConfig loads .env files and binds environment variables with the DPHIL_ prefix
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dphil")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetTableConfig reads the table configuration from viper
func GetTableConfig() (table.Config, error) {
	protocol, err := ring.ParseProtocol(viper.GetString("protocol"))
	if err != nil {
		return table.Config{}, err
	}

	conf := table.Config{
		Agents:    viper.GetInt("agents"),
		Protocol:  protocol,
		Fairness:  viper.GetBool("fairness"),
		ThinkTime: viper.GetDuration("think"),
		EatTime:   viper.GetDuration("eat"),
		YieldTime: viper.GetDuration("yield"),
		MealLimit: viper.GetUint64("meals"),
		Duration:  viper.GetDuration("duration"),
		Grace:     viper.GetDuration("grace"),
	}

	return conf, conf.Validate()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
