package testing

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dPhil/lib/ring"
)

// AcquirerFactory creates a new acquirer for a ring of n resources
type AcquirerFactory func(n int) (ring.IAcquirer, error)

// RunAcquirerTests runs the conformance suite for an IAcquirer implementation.
func RunAcquirerTests(t *testing.T, name string, factory AcquirerFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("InvalidArguments", func(t *testing.T) {
			testInvalidArguments(t, factory)
		})

		t.Run("AcquireRelease", func(t *testing.T) {
			testAcquireRelease(t, mustCreate(t, factory, 5))
		})

		t.Run("NeighborBlocks", func(t *testing.T) {
			testNeighborBlocks(t, mustCreate(t, factory, 5))
		})

		t.Run("MutualExclusion", func(t *testing.T) {
			testMutualExclusion(t, mustCreate(t, factory, 5))
		})

		t.Run("TwoAgents", func(t *testing.T) {
			testMutualExclusion(t, mustCreate(t, factory, 2))
		})

		t.Run("AdjacentContention", func(t *testing.T) {
			testAdjacentContention(t, mustCreate(t, factory, 5))
		})

		t.Run("Close", func(t *testing.T) {
			testClose(t, mustCreate(t, factory, 5))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

const waitTimeout = 10 * time.Second

func mustCreate(t *testing.T, factory AcquirerFactory, n int) ring.IAcquirer {
	acq, err := factory(n)
	if err != nil {
		t.Fatalf("failed to create acquirer for %d resources: %v", n, err)
	}
	if acq.Size() != n {
		t.Fatalf("Size() = %d, want %d", acq.Size(), n)
	}
	return acq
}

// acquireAsync starts AcquirePair in a goroutine and returns its result channel
func acquireAsync(acq ring.IAcquirer, agent int) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- acq.AcquirePair(agent)
	}()
	return done
}

func expectBlocked(t *testing.T, done <-chan error, agent int) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("agent %d should be blocked, but acquire returned (err=%v)", agent, err)
	case <-time.After(50 * time.Millisecond):
	}
}

func expectAcquired(t *testing.T, done <-chan error, agent int) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("agent %d failed to acquire: %v", agent, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for agent %d to acquire its pair", agent)
	}
}

func expectFree(t *testing.T, acq ring.IAcquirer) {
	t.Helper()
	for r, h := range acq.Holders() {
		if h != -1 {
			t.Errorf("resource %d should be free, but is held by agent %d", r, h)
		}
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInvalidArguments(t *testing.T, factory AcquirerFactory) {
	for _, n := range []int{-1, 0, 1} {
		if _, err := factory(n); !errors.Is(err, ring.ErrInvalidArgument) {
			t.Errorf("creating a ring of %d resources: expected invalid argument, got %v", n, err)
		}
	}

	acq := mustCreate(t, factory, 3)
	defer acq.Close()

	for _, agent := range []int{-1, 3, 42} {
		if err := acq.AcquirePair(agent); !errors.Is(err, ring.ErrInvalidArgument) {
			t.Errorf("AcquirePair(%d): expected invalid argument, got %v", agent, err)
		}
		if err := acq.ReleasePair(agent); !errors.Is(err, ring.ErrInvalidArgument) {
			t.Errorf("ReleasePair(%d): expected invalid argument, got %v", agent, err)
		}
	}

	if err := acq.ReleasePair(0); !errors.Is(err, ring.ErrNotHeld) {
		t.Errorf("ReleasePair without AcquirePair: expected not held, got %v", err)
	}
	expectFree(t, acq)
}

func testAcquireRelease(t *testing.T, acq ring.IAcquirer) {
	defer acq.Close()
	n := acq.Size()

	for agent := 0; agent < n; agent++ {
		if err := acq.AcquirePair(agent); err != nil {
			t.Fatalf("AcquirePair(%d) failed: %v", agent, err)
		}

		h := acq.Holders()
		if h[ring.Left(agent, n)] != agent || h[ring.Right(agent, n)] != agent {
			t.Errorf("agent %d should hold resources %d and %d, holders are %v",
				agent, ring.Left(agent, n), ring.Right(agent, n), h)
		}

		if err := acq.ReleasePair(agent); err != nil {
			t.Fatalf("ReleasePair(%d) failed: %v", agent, err)
		}
		expectFree(t, acq)

		if err := acq.ReleasePair(agent); !errors.Is(err, ring.ErrNotHeld) {
			t.Errorf("second ReleasePair(%d): expected not held, got %v", agent, err)
		}
	}
}

func testNeighborBlocks(t *testing.T, acq ring.IAcquirer) {
	defer acq.Close()
	n := acq.Size()

	if err := acq.AcquirePair(0); err != nil {
		t.Fatalf("AcquirePair(0) failed: %v", err)
	}

	// the left neighbour shares resource 0
	neighbor := ring.LeftNeighbor(0, n)
	neighborDone := acquireAsync(acq, neighbor)
	expectBlocked(t, neighborDone, neighbor)

	// agent 2 shares nothing with agent 0 and can eat right away
	expectAcquired(t, acquireAsync(acq, 2), 2)

	// agent 1 still waits for resource 1, held by agent 2
	if err := acq.ReleasePair(0); err != nil {
		t.Fatalf("ReleasePair(0) failed: %v", err)
	}
	expectBlocked(t, neighborDone, neighbor)

	if err := acq.ReleasePair(2); err != nil {
		t.Fatalf("ReleasePair(2) failed: %v", err)
	}
	expectAcquired(t, neighborDone, neighbor)

	if err := acq.ReleasePair(neighbor); err != nil {
		t.Fatalf("ReleasePair(%d) failed: %v", neighbor, err)
	}
	expectFree(t, acq)
}

// testMutualExclusion lets all agents contend for the ring at once. Every agent
// marks its resources while it holds them; a failed mark means two agents held
// the same resource. Completing all rounds within the timeout shows that the
// ring did not deadlock.
func testMutualExclusion(t *testing.T, acq ring.IAcquirer) {
	defer acq.Close()
	const rounds = 300
	n := acq.Size()

	owners := make([]atomic.Int64, n)
	var collisions atomic.Int64

	var wg sync.WaitGroup
	wg.Add(n)
	for agent := 0; agent < n; agent++ {
		go func(agent int) {
			defer wg.Done()
			mark := int64(agent + 1)
			resources := []int{ring.Left(agent, n), ring.Right(agent, n)}

			for i := 0; i < rounds; i++ {
				if err := acq.AcquirePair(agent); err != nil {
					t.Errorf("agent %d: AcquirePair failed: %v", agent, err)
					return
				}
				for _, r := range resources {
					if !owners[r].CompareAndSwap(0, mark) {
						collisions.Add(1)
					}
				}

				runtime.Gosched()

				for _, r := range resources {
					if !owners[r].CompareAndSwap(mark, 0) {
						collisions.Add(1)
					}
				}
				if err := acq.ReleasePair(agent); err != nil {
					t.Errorf("agent %d: ReleasePair failed: %v", agent, err)
					return
				}
			}
		}(agent)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatalf("agents did not finish %d rounds within %v (deadlock?)", rounds, waitTimeout)
	}
	if c := collisions.Load(); c != 0 {
		t.Errorf("detected %d resource collisions", c)
	}
	expectFree(t, acq)
}

// testAdjacentContention forces two neighbours to request their pair at the
// same time, over and over. Both must get served every round.
func testAdjacentContention(t *testing.T, acq ring.IAcquirer) {
	defer acq.Close()
	const rounds = 500
	agents := []int{0, ring.LeftNeighbor(0, acq.Size())}

	served := make([]atomic.Int64, len(agents))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, agent := range agents {
		wg.Add(1)
		go func(i, agent int) {
			defer wg.Done()
			<-start
			for r := 0; r < rounds; r++ {
				if err := acq.AcquirePair(agent); err != nil {
					t.Errorf("agent %d: AcquirePair failed: %v", agent, err)
					return
				}
				served[i].Add(1)
				if err := acq.ReleasePair(agent); err != nil {
					t.Errorf("agent %d: ReleasePair failed: %v", agent, err)
					return
				}
			}
		}(i, agent)
	}

	close(start)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatalf("adjacent agents did not finish: served %d and %d of %d",
			served[0].Load(), served[1].Load(), rounds)
	}

	for i, agent := range agents {
		if got := served[i].Load(); got != rounds {
			t.Errorf("agent %d was served %d times, want %d", agent, got, rounds)
		}
	}
}

func testClose(t *testing.T, acq ring.IAcquirer) {
	n := acq.Size()

	if err := acq.AcquirePair(0); err != nil {
		t.Fatalf("AcquirePair(0) failed: %v", err)
	}
	neighbor := ring.LeftNeighbor(0, n)
	waiting := acquireAsync(acq, neighbor)
	expectBlocked(t, waiting, neighbor)

	if err := acq.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-waiting:
		if !errors.Is(err, ring.ErrRemoved) {
			t.Errorf("blocked agent: expected removed error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked agent was not woken by Close")
	}

	if err := acq.AcquirePair(2); !errors.Is(err, ring.ErrRemoved) {
		t.Errorf("AcquirePair after Close: expected removed error, got %v", err)
	}

	// closing twice is allowed
	if err := acq.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
