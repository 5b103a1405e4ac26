package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/transport"
)

func (d *Device) SetPower(ctx context.Context, on bool) error {
	return d.command(ctx, protocol.FieldPower, on)
}

func (d *Device) SetMode(ctx context.Context, mode protocol.Mode) error {
	return d.command(ctx, protocol.FieldMode, mode)
}

// SetTargetTemperature writes the set point in the device's own unit.
func (d *Device) SetTargetTemperature(ctx context.Context, temperature int) error {
	return d.command(ctx, protocol.FieldSetTemperature, temperature)
}

// SetCleaning starts or stops the cleaning cycle. Only profiles that map the
// clean characteristic support it.
func (d *Device) SetCleaning(ctx context.Context, on bool) error {
	return d.command(ctx, protocol.FieldClean, on)
}

// command encodes v, writes it and applies it optimistically. The value is
// encoded before any connection attempt so invalid input never touches the
// link.
func (d *Device) command(ctx context.Context, field protocol.Field, v any) error {
	ch, ok := d.profile.ByField(field)
	if !ok {
		return fmt.Errorf("%w: profile %s has no %s characteristic", ErrUnsupported, d.profile.Name(), field)
	}
	data, err := protocol.Encode(ch, v)
	if err != nil {
		return err
	}

	err = d.withConnection(ctx, func(h transport.Handle) error {
		return d.transport.Write(ctx, h, ch.UUID, data, ch.WriteWithResponse)
	})
	if err != nil {
		d.log().WithError(err).WithField("field", field).Warn("Command failed")
		return err
	}

	if _, err := d.apply(func(cur state.State) (state.State, error) {
		return cur.With(field, v)
	}); err != nil {
		return err
	}
	d.touch()

	d.log().WithFields(logrus.Fields{
		"field": field,
		"value": v,
	}).Info("Command written")
	return nil
}

// withConnection runs fn against a live session, connecting first when
// needed. It connects at most once per call.
func (d *Device) withConnection(ctx context.Context, fn func(h transport.Handle) error) error {
	for attempt := 0; ; attempt++ {
		if h := d.liveHandle(); h != nil {
			return fn(h)
		}
		if attempt > 0 {
			return &ConnectionError{State: NotConnected, Address: d.Address(), Msg: "link lost right after connect"}
		}
		if err := d.Connect(ctx); err != nil {
			return err
		}
	}
}

// Verify checks that the device really acts on writes: it reads power,
// writes the opposite value, waits settle, and reads it back. The original
// value is written back whenever the probe write went through. It reports
// whether the read-back matched the probe.
func (d *Device) Verify(ctx context.Context, settle time.Duration) (bool, error) {
	ch, ok := d.profile.ByField(protocol.FieldPower)
	if !ok {
		return false, fmt.Errorf("%w: profile %s has no power characteristic", ErrUnsupported, d.profile.Name())
	}

	var echoed bool
	err := d.withConnection(ctx, func(h transport.Handle) (err error) {
		original, err := d.transport.Read(ctx, h, ch.UUID)
		if err != nil {
			return err
		}
		v, err := protocol.Decode(ch, original)
		if err != nil {
			return err
		}
		probe, err := protocol.Encode(ch, !v.(bool))
		if err != nil {
			return err
		}

		if err := d.transport.Write(ctx, h, ch.UUID, probe, ch.WriteWithResponse); err != nil {
			return err
		}
		defer func() {
			if rerr := d.transport.Write(context.WithoutCancel(ctx), h, ch.UUID, original, ch.WriteWithResponse); rerr != nil {
				err = errors.Join(err, fmt.Errorf("restoring power: %w", rerr))
			}
		}()

		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return ctx.Err()
		}

		back, err := d.transport.Read(ctx, h, ch.UUID)
		if err != nil {
			return err
		}
		echoed = bytes.Equal(back, probe)
		return nil
	})
	if err != nil {
		return false, err
	}
	d.touch()

	d.log().WithField("echoed", echoed).Info("Liveness probe finished")
	return echoed, nil
}
