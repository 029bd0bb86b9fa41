// Package table runs a group of agents around a ring of shared resources.
//
// Every agent cycles through thinking, hungry and eating. Before it gets
// hungry it asks the fairness gate (see package fairness) whether it may try
// to eat; an agent that is ahead of the average yields instead. The two
// resources next to the agent are taken and returned through the acquisition
// protocol of package ring.
//
// A Table is created with NewTable and run once:
//
//	tbl, err := table.NewTable(table.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	report, err := tbl.Run(ctx)
//
// Run returns when every agent has left the table, either because it reached
// Config.MealLimit, because a shutdown was requested (Shutdown, a cancelled
// context or Config.Duration), or because its acquisition protocol failed.
// Agents that are hungry or eating when the shutdown is requested finish their
// meal before they leave. Failed agents are listed in the Report; they do not
// stop the others.
//
// The table exposes its meal counters and agent states as a metrics.Set in
// Prometheus format, see Table.Metrics.
package table
