// Package transport defines the BLE link a device manager drives.
//
// Backends live in sub-packages (goble, tinyble). The device manager owns the
// returned Handle exclusively; backends never retry on their own.
package transport

import (
	"context"
)

// Handle is an opaque token for one live GATT session.
type Handle interface {
	// Address is the peer address the session was opened to.
	Address() string
}

// NotifyHandler receives a characteristic notification. uuid is normalized
// (see protocol.NormalizeUUID). Handlers run on the backend's delivery path
// and must not block.
type NotifyHandler func(uuid string, data []byte)

// Transport is the BLE collaborator consumed by the device manager.
//
// onDisconnect passed to Connect fires at most once per session when the
// link drops without an explicit Disconnect. It must not call back into the
// transport for the same handle.
type Transport interface {
	Connect(ctx context.Context, deviceID string, onDisconnect func()) (Handle, error)
	Read(ctx context.Context, h Handle, uuid string) ([]byte, error)
	Write(ctx context.Context, h Handle, uuid string, data []byte, withResponse bool) error
	Subscribe(ctx context.Context, h Handle, uuid string, fn NotifyHandler) error
	Unsubscribe(ctx context.Context, h Handle, uuid string) error
	Disconnect(ctx context.Context, h Handle) error
	IsLive(h Handle) bool
}
