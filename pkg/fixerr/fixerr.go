// Package fixerr names the error taxonomy a session sorts an incoming
// failure into before deciding how to respond: reject the connection's
// message, reject the order, reject the cancel, drop the session, or
// just log it. See each type's doc for its propagation policy.
package fixerr

import "fmt"

// ProtocolError is a malformed frame, a bad checksum, or a missing
// envelope field. The session emits a Session Reject and continues; the
// message itself is never processed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("protocol error: %s", e.Reason) }

// ValidationError is InvalidSymbol, InvalidPrice, InvalidQuantity,
// MissingField, or DuplicateClOrdID. The order is rejected with an
// Execution Report carrying status Rejected; it is never persisted as a
// resting order, though the rejection event itself may be persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation error: %s", e.Reason) }

// StateError is a cancel for an unknown or already-terminal order, or an
// operation attempted before Logon. It produces an Order Cancel Reject
// or a Session Reject carrying descriptive text.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return fmt.Sprintf("state error: %s", e.Reason) }

// TransportError is a socket-level failure. It terminates only the
// session it occurred on; other sessions and the matching engine are
// unaffected.
type TransportError struct {
	Reason string
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error: %s", e.Reason) }

// PersistenceError is a failure writing to the Port. It is
// observability-only: the matching engine remains available, and the
// originating client is not told their order failed to persist.
type PersistenceError struct {
	Reason string
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence error: %s", e.Reason) }
