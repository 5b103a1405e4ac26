// Package state holds the device state snapshot.
//
// A State is a plain value: updates produce a new State and change detection
// is a single == comparison.
package state

import (
	"fmt"

	"github.com/srg/ooler/internal/protocol"
)

// State is a snapshot of every observed characteristic plus connectivity.
// Sensor fields stay unset until first read and keep their last value after
// a disconnect.
type State struct {
	Power             Optional[bool]          `json:"power"`
	Mode              Optional[protocol.Mode] `json:"mode"`
	SetTemperature    Optional[int]           `json:"set_temperature"`
	ActualTemperature Optional[int]           `json:"actual_temperature"`
	WaterLevel        Optional[int]           `json:"water_level"`
	PumpWatts         Optional[int]           `json:"pump_watts"`
	Clean             Optional[bool]          `json:"clean"`
	Name              Optional[string]        `json:"name"`
	Connected         bool                    `json:"connected"`
}

// With returns a copy of s with field set to v. v must have the Go type the
// codec produces for the field's kind.
func (s State) With(field protocol.Field, v any) (State, error) {
	mismatch := func() error {
		return fmt.Errorf("field %s: unexpected value type %T", field, v)
	}

	switch field {
	case protocol.FieldPower, protocol.FieldClean:
		b, ok := v.(bool)
		if !ok {
			return s, mismatch()
		}
		if field == protocol.FieldPower {
			s.Power = Some(b)
		} else {
			s.Clean = Some(b)
		}
	case protocol.FieldMode:
		m, ok := v.(protocol.Mode)
		if !ok {
			return s, mismatch()
		}
		s.Mode = Some(m)
	case protocol.FieldSetTemperature, protocol.FieldActualTemperature,
		protocol.FieldWaterLevel, protocol.FieldPumpWatts:
		n, ok := v.(int)
		if !ok {
			return s, mismatch()
		}
		switch field {
		case protocol.FieldSetTemperature:
			s.SetTemperature = Some(n)
		case protocol.FieldActualTemperature:
			s.ActualTemperature = Some(n)
		case protocol.FieldWaterLevel:
			s.WaterLevel = Some(n)
		default:
			s.PumpWatts = Some(n)
		}
	case protocol.FieldName:
		str, ok := v.(string)
		if !ok {
			return s, mismatch()
		}
		s.Name = Some(str)
	default:
		return s, fmt.Errorf("unknown field %q", field)
	}
	return s, nil
}

// WithConnected returns a copy of s with the connectivity flag replaced.
func (s State) WithConnected(connected bool) State {
	s.Connected = connected
	return s
}

// Get returns the value of field and whether it has been observed.
func (s State) Get(field protocol.Field) (any, bool) {
	switch field {
	case protocol.FieldPower:
		return unwrap(s.Power)
	case protocol.FieldMode:
		return unwrap(s.Mode)
	case protocol.FieldSetTemperature:
		return unwrap(s.SetTemperature)
	case protocol.FieldActualTemperature:
		return unwrap(s.ActualTemperature)
	case protocol.FieldWaterLevel:
		return unwrap(s.WaterLevel)
	case protocol.FieldPumpWatts:
		return unwrap(s.PumpWatts)
	case protocol.FieldClean:
		return unwrap(s.Clean)
	case protocol.FieldName:
		return unwrap(s.Name)
	}
	return nil, false
}

func unwrap[T comparable](o Optional[T]) (any, bool) {
	v, ok := o.Get()
	if !ok {
		return nil, false
	}
	return v, true
}

func (s State) String() string {
	return fmt.Sprintf("power=%s mode=%s set=%s actual=%s water=%s pump=%s clean=%s name=%s connected=%t",
		s.Power, s.Mode, s.SetTemperature, s.ActualTemperature,
		s.WaterLevel, s.PumpWatts, s.Clean, s.Name, s.Connected)
}
