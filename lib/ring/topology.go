package ring

// Resource i sits between agent i, which uses it as its left resource, and
// agent (i+1) mod n, which uses it as its right resource.

// Left returns the left resource of the agent.
func Left(agent, n int) int {
	return agent
}

// Right returns the right resource of the agent.
func Right(agent, n int) int {
	return (agent + n - 1) % n
}

// LeftNeighbor returns the agent sharing the left resource of the agent.
func LeftNeighbor(agent, n int) int {
	return (agent + 1) % n
}

// RightNeighbor returns the agent sharing the right resource of the agent.
func RightNeighbor(agent, n int) int {
	return (agent + n - 1) % n
}

// holders derives the resource holders from the set of agents that own their pair.
// If both agents of a resource claim it, the agent using it as left resource is reported.
func holders(n int, owns func(agent int) bool) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = -1
	}
	for a := 0; a < n; a++ {
		if !owns(a) {
			continue
		}
		if r := Right(a, n); res[r] == -1 {
			res[r] = a
		}
		res[Left(a, n)] = a
	}
	return res
}

func checkRing(n int) error {
	if n < 2 {
		return NewError(RetCInvalidArgument, "new", -1, "a ring needs at least 2 resources")
	}
	return nil
}

func checkAgent(op string, agent, n int) error {
	if agent < 0 || agent >= n {
		return NewError(RetCInvalidArgument, op, agent, "agent id out of range")
	}
	return nil
}
