package testutils

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
)

// Write records one characteristic write seen by FakeTransport.
type Write struct {
	UUID         string
	Data         []byte
	WithResponse bool
}

// FakeTransport is an in-memory transport.Transport. Characteristic values
// live in a map keyed by normalized UUID; writes update the map unless
// WithoutEcho was set, so reads see what was written.
//
//	ft := testutils.NewFakeTransport().
//	    WithValue(protocol.PowerUUID, 0x01).
//	    WithConnectDelay(50 * time.Millisecond)
type FakeTransport struct {
	mu            sync.Mutex
	values        map[string][]byte
	readErrs      map[string]error
	writeErrs     map[string]error
	subscribeErrs map[string]error
	connectErr    error
	connectDelay  time.Duration
	noEcho        bool
	writes        []Write
	session       *fakeSession
	sessions      int

	connectCalls    atomic.Int32
	disconnectCalls atomic.Int32
	readCalls       atomic.Int32

	handlers *hashmap.Map[string, transport.NotifyHandler]
}

type fakeSession struct {
	id           int
	address      string
	live         atomic.Bool
	onDisconnect func()
}

func (s *fakeSession) Address() string { return s.address }

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		values:        make(map[string][]byte),
		readErrs:      make(map[string]error),
		writeErrs:     make(map[string]error),
		subscribeErrs: make(map[string]error),
		handlers:      hashmap.New[string, transport.NotifyHandler](),
	}
}

func key(uuid string) string {
	return protocol.MustNormalizeUUID(uuid)
}

// WithValue sets the value returned by reads of uuid.
func (f *FakeTransport) WithValue(uuid string, data ...byte) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key(uuid)] = append([]byte(nil), data...)
	return f
}

// WithOolerValues loads the four v1 characteristics.
func (f *FakeTransport) WithOolerValues(power, mode, setTemp, actualTemp byte) *FakeTransport {
	return f.
		WithValue(protocol.PowerUUID, power).
		WithValue(protocol.ModeUUID, mode).
		WithValue(protocol.SetTemperatureUUID, setTemp).
		WithValue(protocol.ActualTemperatureUUID, actualTemp)
}

// WithReadError makes reads of uuid fail. A nil err clears it.
func (f *FakeTransport) WithReadError(uuid string, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.readErrs, key(uuid), err)
	return f
}

// WithWriteError makes writes to uuid fail. A nil err clears it.
func (f *FakeTransport) WithWriteError(uuid string, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.writeErrs, key(uuid), err)
	return f
}

// WithSubscribeError makes subscribing to uuid fail. A nil err clears it.
func (f *FakeTransport) WithSubscribeError(uuid string, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	setOrClear(f.subscribeErrs, key(uuid), err)
	return f
}

// WithConnectError makes every connect fail. A nil err clears it.
func (f *FakeTransport) WithConnectError(err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
	return f
}

// WithConnectDelay makes connect block for d (or until ctx is done).
func (f *FakeTransport) WithConnectDelay(d time.Duration) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectDelay = d
	return f
}

// WithoutEcho makes writes leave stored values untouched, like a device
// that accepts writes but ignores them.
func (f *FakeTransport) WithoutEcho() *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noEcho = true
	return f
}

func setOrClear(m map[string]error, k string, err error) {
	if err == nil {
		delete(m, k)
		return
	}
	m[k] = err
}

func (f *FakeTransport) Connect(ctx context.Context, deviceID string, onDisconnect func()) (transport.Handle, error) {
	f.connectCalls.Add(1)

	f.mu.Lock()
	delay, connectErr := f.connectDelay, f.connectErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, transport.Wrap("connect", deviceID, "", ctx.Err())
		}
	}
	if connectErr != nil {
		return nil, transport.Wrap("connect", deviceID, "", connectErr)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	s := &fakeSession{id: f.sessions, address: deviceID, onDisconnect: onDisconnect}
	s.live.Store(true)
	f.session = s
	return s, nil
}

func (f *FakeTransport) check(h transport.Handle, op, uuid string) (*fakeSession, error) {
	s, ok := h.(*fakeSession)
	if !ok || s == nil {
		return nil, transport.Wrap(op, "", uuid, transport.ErrInvalidHandle)
	}
	if !s.live.Load() {
		return nil, transport.Wrap(op, s.address, uuid, transport.ErrNotConnected)
	}
	return s, nil
}

func (f *FakeTransport) Read(_ context.Context, h transport.Handle, uuid string) ([]byte, error) {
	f.readCalls.Add(1)
	s, err := f.check(h, "read", uuid)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(uuid)
	if err := f.readErrs[k]; err != nil {
		return nil, transport.Wrap("read", s.address, uuid, err)
	}
	v, ok := f.values[k]
	if !ok {
		return nil, transport.Wrap("read", s.address, uuid, transport.ErrCharacteristicNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (f *FakeTransport) Write(_ context.Context, h transport.Handle, uuid string, data []byte, withResponse bool) error {
	s, err := f.check(h, "write", uuid)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(uuid)
	if err := f.writeErrs[k]; err != nil {
		return transport.Wrap("write", s.address, uuid, err)
	}
	f.writes = append(f.writes, Write{UUID: k, Data: append([]byte(nil), data...), WithResponse: withResponse})
	if !f.noEcho {
		f.values[k] = append([]byte(nil), data...)
	}
	return nil
}

func (f *FakeTransport) Subscribe(_ context.Context, h transport.Handle, uuid string, fn transport.NotifyHandler) error {
	s, err := f.check(h, "subscribe", uuid)
	if err != nil {
		return err
	}

	f.mu.Lock()
	subErr := f.subscribeErrs[key(uuid)]
	f.mu.Unlock()
	if subErr != nil {
		return transport.Wrap("subscribe", s.address, uuid, subErr)
	}
	f.handlers.Set(key(uuid), fn)
	return nil
}

func (f *FakeTransport) Unsubscribe(_ context.Context, h transport.Handle, uuid string) error {
	if _, err := f.check(h, "unsubscribe", uuid); err != nil {
		return err
	}
	f.handlers.Del(key(uuid))
	return nil
}

func (f *FakeTransport) Disconnect(_ context.Context, h transport.Handle) error {
	s, ok := h.(*fakeSession)
	if !ok || s == nil {
		return transport.Wrap("disconnect", "", "", transport.ErrInvalidHandle)
	}
	if s.live.CompareAndSwap(true, false) {
		f.disconnectCalls.Add(1)
		f.clearHandlers()
	}
	return nil
}

func (f *FakeTransport) IsLive(h transport.Handle) bool {
	s, ok := h.(*fakeSession)
	return ok && s != nil && s.live.Load()
}

func (f *FakeTransport) clearHandlers() {
	var keys []string
	f.handlers.Range(func(k string, _ transport.NotifyHandler) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		f.handlers.Del(k)
	}
}

// Notify delivers a notification as the peripheral would. It reports false
// when nothing is subscribed to uuid.
func (f *FakeTransport) Notify(uuid string, data ...byte) bool {
	k := key(uuid)
	h, ok := f.handlers.Get(k)
	if !ok {
		return false
	}
	f.mu.Lock()
	if !f.noEcho {
		f.values[k] = append([]byte(nil), data...)
	}
	f.mu.Unlock()
	h(k, data)
	return true
}

// DropConnection simulates the link going away: the current session stops
// being live and its disconnect callback fires once.
func (f *FakeTransport) DropConnection() {
	f.mu.Lock()
	s := f.session
	f.mu.Unlock()
	if s == nil || !s.live.CompareAndSwap(true, false) {
		return
	}
	f.clearHandlers()
	if s.onDisconnect != nil {
		s.onDisconnect()
	}
}

// FireStaleDisconnect invokes the disconnect callback of the most recent
// session again, whether or not it already ended.
func (f *FakeTransport) FireStaleDisconnect() {
	f.mu.Lock()
	s := f.session
	f.mu.Unlock()
	if s != nil && s.onDisconnect != nil {
		s.onDisconnect()
	}
}

// LastAddress is the address passed to the most recent successful connect.
func (f *FakeTransport) LastAddress() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return ""
	}
	return f.session.address
}

func (f *FakeTransport) ConnectCalls() int    { return int(f.connectCalls.Load()) }
func (f *FakeTransport) DisconnectCalls() int { return int(f.disconnectCalls.Load()) }
func (f *FakeTransport) ReadCalls() int       { return int(f.readCalls.Load()) }

// Writes returns every recorded write in order.
func (f *FakeTransport) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// Value returns the stored value for uuid.
func (f *FakeTransport) Value(uuid string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.values[key(uuid)]...)
}

// Subscribed reports whether a notification handler is registered for uuid.
func (f *FakeTransport) Subscribed(uuid string) bool {
	_, ok := f.handlers.Get(key(uuid))
	return ok
}

// SubscriptionCount returns the number of registered notification handlers.
func (f *FakeTransport) SubscriptionCount() int {
	return f.handlers.Len()
}

func (f *FakeTransport) String() string {
	return fmt.Sprintf("FakeTransport{connects=%d disconnects=%d writes=%d}",
		f.ConnectCalls(), f.DisconnectCalls(), len(f.Writes()))
}

var _ transport.Transport = (*FakeTransport)(nil)
