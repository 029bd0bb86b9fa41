package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dPhil/cmd/dine"
	"github.com/ValentinKolb/dPhil/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dphil",
		Short: "agents sharing a ring of resources",
		Long: fmt.Sprintf(`dPhil (v%s)

Agents seated around a ring of shared resources, each needing both of its
neighbouring resources to make progress. dPhil runs them with a deadlock-free
acquisition protocol and an optional fairness gate.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dPhil",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dPhil v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(dine.DineCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
