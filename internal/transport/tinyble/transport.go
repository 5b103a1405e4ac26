// Package tinyble implements transport.Transport on tinygo.org/x/bluetooth,
// which covers BlueZ, CoreBluetooth and WinRT hosts.
package tinyble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/groutine"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
	"tinygo.org/x/bluetooth"
)

// maxAttributeLen is the largest ATT attribute value.
const maxAttributeLen = 512

// Adapter is the subset of *bluetooth.Adapter this package uses.
type Adapter interface {
	Enable() error
	SetConnectHandler(func(device bluetooth.Device, connected bool))
	Connect(address bluetooth.Address, params bluetooth.ConnectionParams) (bluetooth.Device, error)
}

// Transport drives one host adapter. On most hosts BLE addresses are MACs;
// on macOS they are CoreBluetooth peripheral UUIDs.
type Transport struct {
	adapter Adapter
	logger  *logrus.Logger

	enableOnce sync.Once
	enableErr  error

	sessions *hashmap.Map[string, *session]
}

// New returns a transport on bluetooth.DefaultAdapter.
func New(logger *logrus.Logger) *Transport {
	return NewWithAdapter(bluetooth.DefaultAdapter, logger)
}

// NewWithAdapter returns a transport on a specific adapter.
func NewWithAdapter(adapter Adapter, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		adapter:  adapter,
		logger:   logger,
		sessions: hashmap.New[string, *session](),
	}
}

type session struct {
	address      string
	device       bluetooth.Device
	chars        map[string]bluetooth.DeviceCharacteristic
	live         atomic.Bool
	onDisconnect func()
}

func (s *session) Address() string { return s.address }

func addressKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		if err := t.adapter.Enable(); err != nil {
			t.enableErr = fmt.Errorf("%w: %v", transport.ErrBluetoothOff, err)
			return
		}
		t.adapter.SetConnectHandler(t.handleConnectEvent)
	})
	return t.enableErr
}

// handleConnectEvent routes adapter-level drop events to the owning session.
func (t *Transport) handleConnectEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	s, ok := t.sessions.Get(addressKey(device.Address.String()))
	if !ok || !s.live.CompareAndSwap(true, false) {
		return
	}
	t.sessions.Del(addressKey(s.address))
	t.logger.WithField("address", s.address).Warn("BLE link dropped")
	if s.onDisconnect != nil {
		s.onDisconnect()
	}
}

// Connect enables the adapter on first use, connects and discovers every
// characteristic the peer exposes.
func (t *Transport) Connect(ctx context.Context, deviceID string, onDisconnect func()) (transport.Handle, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, transport.Wrap("connect", deviceID, "", fmt.Errorf("device address is empty"))
	}
	if err := t.enable(); err != nil {
		return nil, transport.Wrap("connect", deviceID, "", err)
	}

	var addr bluetooth.Address
	addr.Set(deviceID)

	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	groutine.Go(ctx, "tinyble-connect", func(context.Context) {
		device, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	})

	var device bluetooth.Device
	select {
	case <-ctx.Done():
		// The adapter call cannot be cancelled; a late success is closed here.
		groutine.Go(context.Background(), "tinyble-connect-reaper", func(context.Context) {
			if r := <-ch; r.err == nil {
				_ = r.device.Disconnect()
			}
		})
		return nil, transport.Wrap("connect", deviceID, "", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, transport.Wrap("connect", deviceID, "", r.err)
		}
		device = r.device
	}

	s := &session{
		address:      deviceID,
		device:       device,
		chars:        make(map[string]bluetooth.DeviceCharacteristic),
		onDisconnect: onDisconnect,
	}
	if err := s.discover(); err != nil {
		_ = device.Disconnect()
		return nil, transport.Wrap("connect", deviceID, "", err)
	}

	s.live.Store(true)
	t.sessions.Set(addressKey(deviceID), s)

	t.logger.WithFields(logrus.Fields{
		"address":         deviceID,
		"characteristics": len(s.chars),
	}).Info("BLE device connected")
	return s, nil
}

func (s *session) discover() error {
	services, err := s.device.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return fmt.Errorf("discover characteristics of %s: %w", svc.UUID().String(), err)
		}
		for _, c := range chars {
			uuid, err := protocol.NormalizeUUID(c.UUID().String())
			if err != nil {
				continue
			}
			s.chars[uuid] = c
		}
	}
	return nil
}

func (t *Transport) lookup(h transport.Handle, op, uuid string) (*session, bluetooth.DeviceCharacteristic, error) {
	s, ok := h.(*session)
	if !ok || s == nil {
		return nil, bluetooth.DeviceCharacteristic{}, transport.Wrap(op, "", uuid, transport.ErrInvalidHandle)
	}
	if !s.live.Load() {
		return nil, bluetooth.DeviceCharacteristic{}, transport.Wrap(op, s.address, uuid, transport.ErrNotConnected)
	}
	key, err := protocol.NormalizeUUID(uuid)
	if err != nil {
		return nil, bluetooth.DeviceCharacteristic{}, transport.Wrap(op, s.address, uuid, err)
	}
	c, ok := s.chars[key]
	if !ok {
		return nil, bluetooth.DeviceCharacteristic{}, transport.Wrap(op, s.address, uuid, transport.ErrCharacteristicNotFound)
	}
	return s, c, nil
}

func (t *Transport) Read(_ context.Context, h transport.Handle, uuid string) ([]byte, error) {
	s, c, err := t.lookup(h, "read", uuid)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, maxAttributeLen)
	n, err := c.Read(buf)
	if err != nil {
		return nil, transport.Wrap("read", s.address, uuid, err)
	}
	return buf[:n], nil
}

func (t *Transport) Write(_ context.Context, h transport.Handle, uuid string, data []byte, withResponse bool) error {
	s, c, err := t.lookup(h, "write", uuid)
	if err != nil {
		return err
	}
	if withResponse {
		err = writeWithResponse(c, data, t.logger.WithFields(logrus.Fields{
			"address":   s.address,
			"char_uuid": uuid,
		}))
	} else {
		_, err = c.WriteWithoutResponse(data)
	}
	if err != nil {
		return transport.Wrap("write", s.address, uuid, err)
	}
	return nil
}

func (t *Transport) Subscribe(_ context.Context, h transport.Handle, uuid string, fn transport.NotifyHandler) error {
	s, c, err := t.lookup(h, "subscribe", uuid)
	if err != nil {
		return err
	}
	key := protocol.MustNormalizeUUID(uuid)
	err = c.EnableNotifications(func(buf []byte) {
		// The backend reuses buf between notifications.
		data := make([]byte, len(buf))
		copy(data, buf)
		fn(key, data)
	})
	if err != nil {
		return transport.Wrap("subscribe", s.address, uuid, err)
	}
	return nil
}

func (t *Transport) Unsubscribe(_ context.Context, h transport.Handle, uuid string) error {
	s, c, err := t.lookup(h, "unsubscribe", uuid)
	if err != nil {
		return err
	}
	if err := c.EnableNotifications(nil); err != nil {
		return transport.Wrap("unsubscribe", s.address, uuid, err)
	}
	return nil
}

func (t *Transport) Disconnect(_ context.Context, h transport.Handle) error {
	s, ok := h.(*session)
	if !ok || s == nil {
		return transport.Wrap("disconnect", "", "", transport.ErrInvalidHandle)
	}
	if !s.live.CompareAndSwap(true, false) {
		return nil
	}
	if cur, ok := t.sessions.Get(addressKey(s.address)); ok && cur == s {
		t.sessions.Del(addressKey(s.address))
	}
	if err := s.device.Disconnect(); err != nil {
		return transport.Wrap("disconnect", s.address, "", err)
	}
	t.logger.WithField("address", s.address).Info("BLE device disconnected")
	return nil
}

func (t *Transport) IsLive(h transport.Handle) bool {
	s, ok := h.(*session)
	return ok && s != nil && s.live.Load()
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ Adapter             = (*bluetooth.Adapter)(nil)
)
