package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/ooler/internal/device"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
)

// Command-level errors
var (
	// ErrNothingToSet is returned by set when no setting flag was given.
	ErrNothingToSet = errors.New("nothing to set: use --power, --mode, --temp or --clean")
)

// FormatUserError turns an error chain into a one-line message for the
// terminal. Unknown errors are printed as they are.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var (
		cerr *device.ConnectionError
		derr *protocol.DecodeError
		eerr *protocol.EncodeError
	)
	switch {
	case errors.Is(err, transport.ErrBluetoothOff):
		return "Bluetooth is turned off or unavailable; enable it and try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for the device; is it powered and in range?"
	case errors.Is(err, device.ErrUnsupported):
		return fmt.Sprintf("not supported by this device profile: %v", err)
	case errors.As(err, &cerr) && cerr.State == device.ConnectFailed:
		return fmt.Sprintf("could not connect to %s: %v", cerr.Address, cerr.Err)
	case errors.As(err, &cerr) && cerr.State == device.SetupFailed:
		return fmt.Sprintf("connected to %s but setup failed (%s); try again", cerr.Address, cerr.Msg)
	case errors.Is(err, transport.ErrNotConnected), errors.As(err, &cerr):
		return "connection to the device was lost; try again"
	case errors.As(err, &eerr):
		return fmt.Sprintf("invalid value: %v", eerr)
	case errors.As(err, &derr):
		return fmt.Sprintf("device sent data this profile cannot decode: %v", derr)
	}
	return err.Error()
}
