package ring

import (
	"errors"
	"testing"
)

// TestTopology checks that every resource is shared by exactly two adjacent agents
func TestTopology(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		users := make([][]int, n)
		for a := 0; a < n; a++ {
			users[Left(a, n)] = append(users[Left(a, n)], a)
			users[Right(a, n)] = append(users[Right(a, n)], a)
		}

		for r, agents := range users {
			if len(agents) != 2 {
				t.Fatalf("n=%d: resource %d used by %v, want exactly two agents", n, r, agents)
			}
			shared := map[int]bool{agents[0]: true, agents[1]: true}
			if !shared[r] || !shared[(r+1)%n] {
				t.Errorf("n=%d: resource %d shared by %v, want [%d %d]", n, r, agents, r, (r+1)%n)
			}
		}

		for a := 0; a < n; a++ {
			if Right(LeftNeighbor(a, n), n) != Left(a, n) {
				t.Errorf("n=%d: left neighbour of %d does not share its left resource", n, a)
			}
			if Left(RightNeighbor(a, n), n) != Right(a, n) {
				t.Errorf("n=%d: right neighbour of %d does not share its right resource", n, a)
			}
		}
	}
}

func TestHolders(t *testing.T) {
	owned := map[int]bool{0: true, 2: true}
	h := holders(5, func(a int) bool { return owned[a] })
	want := []int{0, 2, 2, -1, 0}

	for i := range want {
		if h[i] != want[i] {
			t.Fatalf("holders = %v, want %v", h, want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	err := error(NewError(RetCRemoved, "acquire", 3, "gone"))

	if !errors.Is(err, ErrRemoved) {
		t.Error("expected errors.Is(err, ErrRemoved)")
	}
	if errors.Is(err, ErrNotHeld) {
		t.Error("removed error should not match ErrNotHeld")
	}
	if got, want := err.Error(), "RingError (code Removed) acquire agent 3: gone"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
