package ring

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Operation executed successfully.
	RetCInvalidArgument                // 1: Invalid ring size or agent id.
	RetCRemoved                        // 2: The primitives were destroyed.
	RetCNotHeld                        // 3: Release of a pair the agent does not hold.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInvalidArgument:
		return "InvalidArgument"
	case RetCRemoved:
		return "Removed"
	case RetCNotHeld:
		return "NotHeld"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is returned by all ring operations. It carries a return code, the
// operation that failed and the agent involved (-1 if none).
type Error struct {
	Code  RetCode
	Op    string
	Agent int
	Msg   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Agent < 0 {
		return fmt.Sprintf("RingError (code %s) %s: %s", e.Code, e.Op, e.Msg)
	}
	return fmt.Sprintf("RingError (code %s) %s agent %d: %s", e.Code, e.Op, e.Agent, e.Msg)
}

// Is reports whether target is a *Error with the same code, so that
// errors.Is(err, ErrRemoved) works for any agent and operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new ring error.
func NewError(code RetCode, op string, agent int, msg string) *Error {
	return &Error{
		Code:  code,
		Op:    op,
		Agent: agent,
		Msg:   msg,
	}
}

// Sentinels for errors.Is
var (
	ErrInvalidArgument = &Error{Code: RetCInvalidArgument}
	ErrRemoved         = &Error{Code: RetCRemoved}
	ErrNotHeld         = &Error{Code: RetCNotHeld}
)
