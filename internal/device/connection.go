package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/transport"
)

// Connect makes sure a live session exists. On an already live session it
// only re-arms the idle timer. Concurrent callers wait for one in-flight
// attempt instead of starting their own.
//
// A failed transport connect returns a *ConnectionError in ConnectFailed
// state; a session whose initial read or subscribe fails is torn down and
// reported as SetupFailed. Either way the device stays disconnected and no
// retry is attempted here. An undecodable initial value discards the whole
// initial poll but keeps the session.
func (d *Device) Connect(ctx context.Context) error {
	if d.IsConnected() {
		d.touch()
		return nil
	}

	if !d.connMu.TryLock() {
		d.log().Debug("Connection already in progress, waiting for it to complete")
		d.connMu.Lock()
	}
	defer d.connMu.Unlock()

	if d.IsConnected() {
		d.touch()
		return nil
	}
	return d.connectLocked(ctx)
}

func (d *Device) connectLocked(ctx context.Context) error {
	// A dropped session may still hold backend resources.
	d.sessMu.Lock()
	stale := d.handle
	d.handle = nil
	d.sessMu.Unlock()
	if stale != nil {
		if err := d.transport.Disconnect(ctx, stale); err != nil {
			d.log().WithError(err).Debug("Closing stale session failed")
		}
	}

	address := d.Address()
	d.sessMu.Lock()
	d.generation++
	gen := d.generation
	d.sessionID = uuid.NewString()
	d.sessMu.Unlock()

	log := d.log()
	log.Info("Connecting")
	started := time.Now()

	h, err := d.transport.Connect(ctx, address, func() { d.handleDrop(gen) })
	if err != nil {
		log.WithError(err).Warn("Connect failed")
		d.endSession(gen)
		return &ConnectionError{State: ConnectFailed, Address: address, Err: err}
	}

	d.sessMu.Lock()
	if d.generation != gen {
		// Dropped before the handle was stored.
		d.sessMu.Unlock()
		_ = d.transport.Disconnect(ctx, h)
		return &ConnectionError{State: SetupFailed, Address: address, Msg: "link dropped during connect"}
	}
	d.handle = h
	d.sessMu.Unlock()

	values, err := d.readAll(ctx, h)
	var derr *protocol.DecodeError
	switch {
	case errors.As(err, &derr):
		// Sensor values stay as they were; the link is still usable.
		log.WithError(err).Warn("Initial state undecodable, keeping previous values")
		values = nil
	case err != nil:
		return d.rollback(ctx, gen, h, "initial read", err)
	}
	_, _ = d.apply(func(cur state.State) (state.State, error) {
		return merge(cur, values), nil
	})

	for _, ch := range d.profile.Notifiable() {
		if err := d.transport.Subscribe(ctx, h, ch.UUID, d.notificationHandler(gen)); err != nil {
			return d.rollback(ctx, gen, h, "subscribe", err)
		}
	}

	d.armIdleTimer()
	log.WithFields(logrus.Fields{
		"elapsed": time.Since(started).Round(time.Millisecond),
		"profile": d.profile.Name(),
	}).Info("Connected")
	return nil
}

// rollback tears down a half-built session and leaves the device
// disconnected.
func (d *Device) rollback(ctx context.Context, gen uint64, h transport.Handle, step string, cause error) error {
	d.log().WithError(cause).WithField("step", step).Warn("Connection setup failed, rolling back")

	d.endSession(gen)
	if d.transport.IsLive(h) {
		if err := d.transport.Disconnect(ctx, h); err != nil {
			d.log().WithError(err).Debug("Disconnect during rollback failed")
		}
	}
	d.setConnected(false)
	return &ConnectionError{State: SetupFailed, Address: h.Address(), Msg: step, Err: cause}
}

// endSession clears the handle if gen is still the current session.
func (d *Device) endSession(gen uint64) bool {
	d.sessMu.Lock()
	defer d.sessMu.Unlock()
	if d.generation != gen {
		return false
	}
	d.handle = nil
	d.generation++
	return true
}

// Stop closes the session. Notifications are unsubscribed first when the
// link is still up. Sensor values are kept; only Connected flips to false.
// Stop on a disconnected device is a no-op.
func (d *Device) Stop(ctx context.Context) error {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.stopLocked(ctx, "stop")
}

func (d *Device) stopLocked(ctx context.Context, reason string) error {
	d.cancelIdleTimer()

	d.sessMu.Lock()
	h := d.handle
	d.handle = nil
	d.generation++
	d.sessMu.Unlock()

	if h == nil {
		d.setConnected(false)
		return nil
	}

	log := d.log().WithField("reason", reason)
	log.Info("Disconnecting")

	var errs []error
	if d.transport.IsLive(h) {
		for _, ch := range d.profile.Notifiable() {
			if err := d.transport.Unsubscribe(ctx, h, ch.UUID); err != nil {
				log.WithError(err).WithField("char_uuid", ch.UUID).Debug("Unsubscribe failed")
			}
		}
		if err := d.transport.Disconnect(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}

	d.setConnected(false)
	return errors.Join(errs...)
}

// handleDrop is the transport's disconnect callback. The link is already
// gone, so no transport call is made. Late or repeated calls are no-ops.
func (d *Device) handleDrop(gen uint64) {
	if !d.endSession(gen) {
		d.logger.WithField("address", d.Address()).Debug("Ignoring disconnect from a finished session")
		return
	}
	d.cancelIdleTimer()
	d.log().Warn("Disconnected from device")
	d.setConnected(false)
}

// touch re-arms the idle timer if a session is live.
func (d *Device) touch() {
	if d.IsConnected() {
		d.armIdleTimer()
	}
}

func (d *Device) armIdleTimer() {
	if d.idleTimeout <= 0 {
		return
	}
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.timerGen++
	gen := d.timerGen
	d.idleTimer = time.AfterFunc(d.idleTimeout, func() { d.onIdle(gen) })
}

func (d *Device) cancelIdleTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	d.timerGen++
}

func (d *Device) timerCurrent(gen uint64) bool {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	return gen == d.timerGen
}

// onIdle runs the Stop path unless the timer was re-armed or cancelled
// after it fired.
func (d *Device) onIdle(gen uint64) {
	if !d.timerCurrent(gen) {
		return
	}

	d.connMu.Lock()
	defer d.connMu.Unlock()

	if !d.timerCurrent(gen) {
		return
	}
	d.log().WithField("idle_timeout", d.idleTimeout).Debug("Disconnecting after idle timeout")
	if err := d.stopLocked(context.Background(), "idle"); err != nil {
		d.log().WithError(err).Warn("Idle disconnect failed")
	}
}

func (d *Device) notificationHandler(gen uint64) transport.NotifyHandler {
	return func(uuid string, data []byte) {
		d.sessMu.RLock()
		current := d.generation == gen
		d.sessMu.RUnlock()
		if !current {
			return
		}
		d.handleNotification(uuid, data)
	}
}

// fieldValue is one decoded characteristic.
type fieldValue struct {
	field protocol.Field
	value any
}

func merge(cur state.State, values []fieldValue) state.State {
	next := cur
	for _, fv := range values {
		// Values come from Decode, so With cannot fail on type.
		if s, err := next.With(fv.field, fv.value); err == nil {
			next = s
		}
	}
	return next.WithConnected(true)
}
