package device

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/transport"
)

// Options configures a Device.
type Options struct {
	Address string
	// Profile selects the characteristic map; nil means protocol.V1().
	Profile *protocol.Profile
	// IdleTimeout drops an unused connection after this long. Zero or
	// negative never auto-disconnects.
	IdleTimeout time.Duration
	Logger      *logrus.Logger
}

// Device is the connection manager for one peripheral.
type Device struct {
	transport   transport.Transport
	profile     *protocol.Profile
	idleTimeout time.Duration
	logger      *logrus.Logger
	callbacks   *Registry

	addrMu  sync.RWMutex
	address string

	// connMu serializes connect and disconnect transitions.
	connMu sync.Mutex

	// sessMu guards the live session. generation changes every time a session
	// starts or ends so late events from an old session can be recognised.
	sessMu     sync.RWMutex
	handle     transport.Handle
	generation uint64
	sessionID  string

	timerMu   sync.Mutex
	idleTimer *time.Timer
	timerGen  uint64

	// dispatchMu is held across store-and-fire so callbacks observe updates
	// in order; stateMu only guards the stored snapshot.
	dispatchMu sync.Mutex
	stateMu    sync.RWMutex
	state      state.State
}

// New creates a disconnected device. No transport call is made.
func New(t transport.Transport, opts Options) (*Device, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is nil")
	}
	if strings.TrimSpace(opts.Address) == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	if opts.Profile == nil {
		opts.Profile = protocol.V1()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &Device{
		transport:   t,
		profile:     opts.Profile,
		idleTimeout: opts.IdleTimeout,
		logger:      opts.Logger,
		callbacks:   NewRegistry(opts.Logger),
		address:     opts.Address,
	}, nil
}

// Address returns the peer address used by the next connect.
func (d *Device) Address() string {
	d.addrMu.RLock()
	defer d.addrMu.RUnlock()
	return d.address
}

// SetAddress re-targets the device. A live session is not affected; the new
// address is used on the next connect.
func (d *Device) SetAddress(address string) {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	d.address = address
}

func (d *Device) Profile() *protocol.Profile {
	return d.profile
}

// State returns the current snapshot without blocking on I/O.
func (d *Device) State() state.State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

// RegisterCallback subscribes cb to state changes. The returned function
// unregisters it.
func (d *Device) RegisterCallback(cb Callback) (unregister func()) {
	return d.callbacks.Register(cb)
}

// IsConnected reports whether a session exists and the transport still
// considers it live.
func (d *Device) IsConnected() bool {
	return d.liveHandle() != nil
}

func (d *Device) liveHandle() transport.Handle {
	d.sessMu.RLock()
	h := d.handle
	d.sessMu.RUnlock()
	if h == nil || !d.transport.IsLive(h) {
		return nil
	}
	return h
}

func (d *Device) log() *logrus.Entry {
	d.sessMu.RLock()
	session := d.sessionID
	d.sessMu.RUnlock()

	entry := d.logger.WithField("address", d.Address())
	if session != "" {
		entry = entry.WithField("session", session)
	}
	return entry
}

// apply is the single change-gated update. update derives the next snapshot
// from the current one; callbacks fire only when the result differs.
func (d *Device) apply(update func(cur state.State) (state.State, error)) (bool, error) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	d.stateMu.Lock()
	cur := d.state
	next, err := update(cur)
	if err != nil || next == cur {
		d.stateMu.Unlock()
		return false, err
	}
	d.state = next
	d.stateMu.Unlock()

	d.callbacks.Fire(next)
	return true, nil
}

func (d *Device) setConnected(connected bool) {
	_, _ = d.apply(func(cur state.State) (state.State, error) {
		return cur.WithConnected(connected), nil
	})
}
