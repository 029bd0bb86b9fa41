// Package cmd implements the command-line interface of dPhil.
//
// The package is organized into several subpackages:
//
//   - dine: Runs a table of agents and prints the meal tallies
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dphil -help for a list of all commands.
package cmd
