package ring

import "fmt"

// IAcquirer is the acquisition protocol for a ring of n exclusive resources
// shared by n agents. Agent a needs resource Left(a, n) and resource
// Right(a, n) at the same time.
type IAcquirer interface {
	// AcquirePair blocks until the agent holds both of its resources.
	// Contention is not an error. An error means the protocol itself failed
	// and the resource accounting can no longer be trusted.
	AcquirePair(agent int) (err error)
	// ReleasePair returns both resources of the agent to the ring.
	// Releasing a pair that is not held fails with RetCNotHeld.
	ReleasePair(agent int) (err error)
	// Holders returns, for every resource, the agent currently holding it or -1 if it is free.
	// The result is a snapshot and may be stale as soon as it is returned.
	Holders() []int
	// Size returns the number of resources (and agents) in the ring.
	Size() int
	// Name returns the protocol name.
	Name() Protocol
	// Close destroys the underlying primitives. Blocked and future calls fail with RetCRemoved.
	Close() error
}

// Protocol names an acquisition strategy.
type Protocol string

const (
	// ProtocolAtomic claims both resources in one indivisible semaphore operation.
	ProtocolAtomic Protocol = "atomic"
	// ProtocolGuarded tracks agent states under a single coordinator lock.
	ProtocolGuarded Protocol = "guarded"
)

// Protocols lists all supported protocols.
var Protocols = []Protocol{ProtocolAtomic, ProtocolGuarded}

// ParseProtocol converts a protocol name to a Protocol
func ParseProtocol(name string) (Protocol, error) {
	switch Protocol(name) {
	case ProtocolAtomic, ProtocolGuarded:
		return Protocol(name), nil
	default:
		return "", fmt.Errorf("invalid protocol %s (expected one of: atomic, guarded)", name)
	}
}

// New creates an acquirer for the given protocol and ring size.
func New(protocol Protocol, n int) (IAcquirer, error) {
	switch protocol {
	case ProtocolAtomic:
		return NewAtomicAcquirer(n)
	case ProtocolGuarded:
		return NewGuardedAcquirer(n)
	default:
		return nil, NewError(RetCInvalidArgument, "new", -1, fmt.Sprintf("unknown protocol %q", protocol))
	}
}
