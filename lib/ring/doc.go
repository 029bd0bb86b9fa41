// Package ring implements the resource ring shared by the agents of a dining
// table and the protocols used to acquire pairs of resources from it.
//
// Topology:
//
//	A ring has n resources and n agents. Resource i is shared between
//	agent i, which uses it as its left resource, and agent (i+1) mod n,
//	which uses it as its right resource. The helpers Left, Right,
//	LeftNeighbor and RightNeighbor encode this layout.
//
// Protocols:
//
//	Both protocols implement IAcquirer and are selected at construction time
//	(see New). Both guarantee that a resource is held by at most one agent,
//	that an agent gets both resources or none, and that the ring cannot
//	deadlock.
//
//	- atomic: every resource is a binary semaphore of a SemSet. AcquirePair
//	  decrements the left and the right semaphore in a single SemSet.Op call,
//	  which blocks until both are available at the same time. ReleasePair is
//	  the symmetric increment. Because no agent can ever hold exactly one
//	  resource, the circular wait of the naive solution cannot form.
//
//	- guarded: a single coordinator lock protects a table of agent states.
//	  A hungry agent eats as soon as neither neighbour eats; otherwise it
//	  releases the lock and waits on its private wait primitive. A releasing
//	  agent re-tests both neighbours on their behalf and wakes them if they
//	  may now eat. No agent ever blocks while holding the coordinator lock.
//
// Errors:
//
//	All operations return *Error values carrying a RetCode. Contention is never
//	an error; an error means the protocol failed (for example because Close was
//	called while an agent was waiting) and the caller must not retry.
//
// Usage Example:
//
//	acq, err := ring.New(ring.ProtocolAtomic, 5)
//	if err != nil {
//	    // Handle error
//	}
//	defer acq.Close()
//
//	if err := acq.AcquirePair(2); err != nil {
//	    // fatal for agent 2
//	}
//	// use resources 2 and 1
//	_ = acq.ReleasePair(2)
package ring
