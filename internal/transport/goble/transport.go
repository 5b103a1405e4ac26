// Package goble implements transport.Transport on github.com/go-ble/ble.
package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/bledb"
	"github.com/srg/ooler/internal/groutine"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
)

// DefaultConnectTimeout bounds Dial plus profile discovery.
const DefaultConnectTimeout = 30 * time.Second

// DeviceFactory creates the host ble.Device (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// Transport drives a single host adapter. The ble.Device is created on first
// connect and shared by every session afterwards.
type Transport struct {
	logger         *logrus.Logger
	connectTimeout time.Duration

	devMu sync.Mutex
	dev   ble.Device
}

// New returns a go-ble transport. A zero connectTimeout uses
// DefaultConnectTimeout.
func New(logger *logrus.Logger, connectTimeout time.Duration) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Transport{logger: logger, connectTimeout: connectTimeout}
}

type session struct {
	address  string
	client   ble.Client
	chars    map[string]*ble.Characteristic
	handlers *hashmap.Map[string, transport.NotifyHandler]
	live     atomic.Bool
	closed   chan struct{}
	once     sync.Once
}

func (s *session) Address() string { return s.address }

func (s *session) shutdown() bool {
	first := false
	s.once.Do(func() {
		first = true
		s.live.Store(false)
		close(s.closed)
	})
	return first
}

func (t *Transport) device() (ble.Device, error) {
	t.devMu.Lock()
	defer t.devMu.Unlock()

	if t.dev != nil {
		return t.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}
	t.dev = dev
	return dev, nil
}

// Connect dials the peer, discovers its profile and starts a monitor that
// reports an unsolicited drop through onDisconnect.
func (t *Transport) Connect(ctx context.Context, deviceID string, onDisconnect func()) (transport.Handle, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, transport.Wrap("connect", deviceID, "", fmt.Errorf("device address is empty"))
	}

	dev, err := t.device()
	if err != nil {
		return nil, transport.Wrap("connect", deviceID, "", fmt.Errorf("failed to create BLE device: %w", err))
	}

	connCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	log := t.logger.WithField("address", deviceID)
	log.WithField("timeout", t.connectTimeout).Debug("Dialing BLE device...")

	client, err := dev.Dial(connCtx, ble.NewAddr(deviceID))
	if err != nil {
		return nil, transport.Wrap("connect", deviceID, "", NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			log.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return nil, transport.Wrap("connect", deviceID, "", fmt.Errorf("failed to discover profile: %w", NormalizeError(err)))
	}

	s := &session{
		address:  deviceID,
		client:   client,
		chars:    make(map[string]*ble.Characteristic),
		handlers: hashmap.New[string, transport.NotifyHandler](),
		closed:   make(chan struct{}),
	}
	for _, svc := range profile.Services {
		log.WithFields(logrus.Fields{
			"service_uuid":    svc.UUID.String(),
			"service_name":    bledb.LookupService(svc.UUID.String()),
			"characteristics": len(svc.Characteristics),
		}).Debug("Discovered service")
		for _, c := range svc.Characteristics {
			uuid, err := protocol.NormalizeUUID(c.UUID.String())
			if err != nil {
				continue
			}
			s.chars[uuid] = c
		}
	}
	s.live.Store(true)

	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "goble-disconnect-monitor", func(ctx context.Context) {
			select {
			case <-dc.Disconnected():
				if s.shutdown() {
					log.WithField("goroutine", groutine.GetName(ctx)).Warn("BLE link dropped")
					if onDisconnect != nil {
						onDisconnect()
					}
				}
			case <-s.closed:
			}
		})
	} else {
		log.Debug("Client does not expose a Disconnected() channel, drops are detected on next I/O")
	}

	log.WithFields(logrus.Fields{
		"services":        len(profile.Services),
		"characteristics": len(s.chars),
	}).Info("BLE device connected")
	return s, nil
}

func (t *Transport) lookup(h transport.Handle, op, uuid string) (*session, *ble.Characteristic, error) {
	s, ok := h.(*session)
	if !ok || s == nil {
		return nil, nil, transport.Wrap(op, "", uuid, transport.ErrInvalidHandle)
	}
	if !s.live.Load() {
		return nil, nil, transport.Wrap(op, s.address, uuid, transport.ErrNotConnected)
	}
	key, err := protocol.NormalizeUUID(uuid)
	if err != nil {
		return nil, nil, transport.Wrap(op, s.address, uuid, err)
	}
	c, ok := s.chars[key]
	if !ok {
		return nil, nil, transport.Wrap(op, s.address, uuid, transport.ErrCharacteristicNotFound)
	}
	return s, c, nil
}

func (t *Transport) Read(_ context.Context, h transport.Handle, uuid string) ([]byte, error) {
	s, c, err := t.lookup(h, "read", uuid)
	if err != nil {
		return nil, err
	}
	data, err := s.client.ReadCharacteristic(c)
	if err != nil {
		return nil, transport.Wrap("read", s.address, uuid, NormalizeError(err))
	}
	return data, nil
}

func (t *Transport) Write(_ context.Context, h transport.Handle, uuid string, data []byte, withResponse bool) error {
	s, c, err := t.lookup(h, "write", uuid)
	if err != nil {
		return err
	}
	if err := s.client.WriteCharacteristic(c, data, !withResponse); err != nil {
		return transport.Wrap("write", s.address, uuid, NormalizeError(err))
	}
	return nil
}

// indicateOnly reports whether the characteristic only supports indications.
func indicateOnly(c *ble.Characteristic) bool {
	return c.Property&ble.CharNotify == 0 && c.Property&ble.CharIndicate != 0
}

func (t *Transport) Subscribe(_ context.Context, h transport.Handle, uuid string, fn transport.NotifyHandler) error {
	s, c, err := t.lookup(h, "subscribe", uuid)
	if err != nil {
		return err
	}
	key := protocol.MustNormalizeUUID(uuid)
	s.handlers.Set(key, fn)

	err = s.client.Subscribe(c, indicateOnly(c), func(data []byte) {
		if handler, ok := s.handlers.Get(key); ok {
			handler(key, data)
		}
	})
	if err != nil {
		s.handlers.Del(key)
		return transport.Wrap("subscribe", s.address, uuid, NormalizeError(err))
	}
	return nil
}

func (t *Transport) Unsubscribe(_ context.Context, h transport.Handle, uuid string) error {
	s, c, err := t.lookup(h, "unsubscribe", uuid)
	if err != nil {
		return err
	}
	s.handlers.Del(protocol.MustNormalizeUUID(uuid))
	if err := s.client.Unsubscribe(c, indicateOnly(c)); err != nil {
		return transport.Wrap("unsubscribe", s.address, uuid, NormalizeError(err))
	}
	return nil
}

// Disconnect closes the session. The drop monitor is stopped first so an
// explicit close never reaches onDisconnect.
func (t *Transport) Disconnect(_ context.Context, h transport.Handle) error {
	s, ok := h.(*session)
	if !ok || s == nil {
		return transport.Wrap("disconnect", "", "", transport.ErrInvalidHandle)
	}
	if !s.shutdown() {
		return nil
	}
	s.handlers.Range(func(key string, _ transport.NotifyHandler) bool {
		s.handlers.Del(key)
		return true
	})
	if err := s.client.CancelConnection(); err != nil {
		return transport.Wrap("disconnect", s.address, "", NormalizeError(err))
	}
	t.logger.WithField("address", s.address).Info("BLE device disconnected")
	return nil
}

func (t *Transport) IsLive(h transport.Handle) bool {
	s, ok := h.(*session)
	return ok && s != nil && s.live.Load()
}

// Close releases the host adapter.
func (t *Transport) Close() error {
	t.devMu.Lock()
	defer t.devMu.Unlock()
	if t.dev == nil {
		return nil
	}
	err := t.dev.Stop()
	t.dev = nil
	return err
}

var _ transport.Transport = (*Transport)(nil)
