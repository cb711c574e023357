package ltiaas

import (
	"errors"
	"fmt"
)

// ErrNoLineItem is the message used when a service key resolves to no line item.
const ErrNoLineItem = "NOT_LINEITEM_FOUND"

var ErrNotConfigured = errors.New("remote service url not configured")

// TransportError is a failed call: the request did not complete or the
// remote service answered with an unexpected status.
type TransportError struct {
	Op     string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: remote returned %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError carries the message of an error payload from the remote service.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Message) }

// Message extracts the user-facing message from err.
func Message(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}
