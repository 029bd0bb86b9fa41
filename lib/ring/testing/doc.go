// Package testing provides a conformance suite for implementations of the
// ring.IAcquirer interface.
//
// The suite checks the invariants every acquisition protocol has to hold:
//
//   - Mutual exclusion: a resource is never held by two agents at once
//   - Deadlock freedom: agents contending in a full ring always make progress
//   - Adjacent contention: two neighbours competing repeatedly both get served
//   - Error handling: invalid ids, releases without ownership and Close
//
// Partial acquisition cannot be seen through IAcquirer.Holders, which reports
// whole pairs. Implementations check it against their own primitives.
//
// Usage:
//
//	func TestMyAcquirer(t *testing.T) {
//	    ringtesting.RunAcquirerTests(t, "MyAcquirer", func(n int) (ring.IAcquirer, error) {
//	        return NewMyAcquirer(n)
//	    })
//	}
package testing
