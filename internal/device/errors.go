package device

import (
	"errors"
	"fmt"
)

// ConnectionState is the kind of connection failure.
type ConnectionState string

const (
	NotConnected  ConnectionState = "not_connected"
	ConnectFailed ConnectionState = "connect_failed"
	SetupFailed   ConnectionState = "setup_failed"
)

// ConnectionError reports a connect sequence that did not produce a usable
// session. The device is left disconnected so a later call can retry.
type ConnectionError struct {
	State   ConnectionState
	Address string
	Msg     string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.State)
	if e.Address != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Address)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected  = &ConnectionError{State: NotConnected}
	ErrConnectFailed = &ConnectionError{State: ConnectFailed}
	ErrSetupFailed   = &ConnectionError{State: SetupFailed}
)

// ErrUnsupported is returned by commands for fields the active protocol
// profile does not map.
var ErrUnsupported = errors.New("unsupported")

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}
