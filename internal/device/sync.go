package device

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/bledb"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/transport"
)

// Poll reads every mapped characteristic and applies them as one update.
// Without a live session it connects instead, which polls as part of setup.
// A failed read or decode leaves the state untouched.
func (d *Device) Poll(ctx context.Context) error {
	h := d.liveHandle()
	if h == nil {
		return d.Connect(ctx)
	}

	values, err := d.readAll(ctx, h)
	if err != nil {
		return err
	}

	changed, _ := d.apply(func(cur state.State) (state.State, error) {
		return merge(cur, values), nil
	})
	d.touch()
	d.log().WithField("changed", changed).Debug("State polled")
	return nil
}

// readAll reads the whole profile in declaration order. Any read or decode
// error aborts, so callers apply all fields or none.
func (d *Device) readAll(ctx context.Context, h transport.Handle) ([]fieldValue, error) {
	chars := d.profile.Characteristics()
	values := make([]fieldValue, 0, len(chars))

	for _, ch := range chars {
		data, err := d.transport.Read(ctx, h, ch.UUID)
		if err != nil {
			return nil, err
		}
		v, err := protocol.Decode(ch, data)
		if err != nil {
			return nil, err
		}
		values = append(values, fieldValue{field: ch.Field, value: v})
	}
	return values, nil
}

// handleNotification decodes one pushed value and applies it. Unknown
// characteristics and malformed payloads are logged and dropped.
func (d *Device) handleNotification(uuid string, data []byte) {
	ch, ok := d.profile.Lookup(uuid)
	if !ok {
		d.log().WithFields(logrus.Fields{
			"char_uuid": uuid,
			"char_name": bledb.LookupCharacteristic(uuid),
		}).Debug("Ignoring notification from unmapped characteristic")
		return
	}

	v, err := protocol.Decode(ch, data)
	if err != nil {
		var derr *protocol.DecodeError
		if errors.As(err, &derr) {
			d.log().WithFields(logrus.Fields{
				"char_uuid": uuid,
				"field":     ch.Field,
				"data":      derr.Data,
			}).Warn("Dropping malformed notification")
		}
		return
	}

	changed, err := d.apply(func(cur state.State) (state.State, error) {
		return cur.With(ch.Field, v)
	})
	if err != nil {
		d.log().WithError(err).Warn("Notification not applied")
		return
	}
	if changed {
		d.log().WithFields(logrus.Fields{
			"field": ch.Field,
			"value": v,
		}).Debug("Notification applied")
	}
}
