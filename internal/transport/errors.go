package transport

import (
	"errors"
	"fmt"
)

// Sentinel causes carried inside a TransportError.
var (
	ErrNotConnected           = errors.New("device not connected")
	ErrBluetoothOff           = errors.New("bluetooth is turned off")
	ErrCharacteristicNotFound = errors.New("characteristic not found")
	ErrInvalidHandle          = errors.New("invalid connection handle")
)

// TransportError is any failure at the transport boundary.
type TransportError struct {
	Op      string // connect, read, write, subscribe, unsubscribe, disconnect
	Address string
	UUID    string // empty for session-level operations
	Err     error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.UUID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
	}
	return fmt.Sprintf("%s %s on %s: %v", e.Op, e.UUID, e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *TransportError. nil stays nil and an error that is
// already a *TransportError is returned unchanged.
func Wrap(op, address, uuid string, err error) error {
	if err == nil {
		return nil
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &TransportError{Op: op, Address: address, UUID: uuid, Err: err}
}

// IsDisconnected reports whether err means the link is gone.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrInvalidHandle)
}
