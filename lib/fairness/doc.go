// Package fairness implements the meal accounting and the fairness gate of a
// dining table.
//
// A Tracker keeps the number of completed meals of every agent plus the global
// meal counter. Before each acquisition attempt an agent asks MayAttempt: it
// may proceed only while its own count does not exceed the integer average
// total/n. An agent ahead of the group yields for a while and asks again.
// After every completed meal the agent calls RecordMeal exactly once.
//
// The gate is a heuristic. It keeps any single agent from building an unbounded
// lead (an agent never exceeds floor(total/n)+1 meals), but it does not bound how
// long an agent below the average waits for its resources.
//
// Stats summarizes the distribution of meals over the agents, which is handy
// to judge how fair a run actually was.
package fairness
