package state

import (
	"encoding/json"
	"testing"

	"github.com/srg/ooler/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_ZeroValue(t *testing.T) {
	var s State
	assert.False(t, s.Connected)
	assert.False(t, s.Power.IsSet())
	assert.False(t, s.Mode.IsSet())
	assert.Equal(t, State{}, s)
}

func TestState_With(t *testing.T) {
	base := State{}

	tests := []struct {
		field protocol.Field
		value any
		check func(t *testing.T, s State)
	}{
		{protocol.FieldPower, true, func(t *testing.T, s State) { assert.Equal(t, Some(true), s.Power) }},
		{protocol.FieldMode, protocol.ModeBoost, func(t *testing.T, s State) { assert.Equal(t, Some(protocol.ModeBoost), s.Mode) }},
		{protocol.FieldSetTemperature, 68, func(t *testing.T, s State) { assert.Equal(t, Some(68), s.SetTemperature) }},
		{protocol.FieldActualTemperature, 70, func(t *testing.T, s State) { assert.Equal(t, Some(70), s.ActualTemperature) }},
		{protocol.FieldWaterLevel, 50, func(t *testing.T, s State) { assert.Equal(t, Some(50), s.WaterLevel) }},
		{protocol.FieldPumpWatts, 12, func(t *testing.T, s State) { assert.Equal(t, Some(12), s.PumpWatts) }},
		{protocol.FieldClean, false, func(t *testing.T, s State) { assert.Equal(t, Some(false), s.Clean) }},
		{protocol.FieldName, "Bedroom", func(t *testing.T, s State) { assert.Equal(t, Some("Bedroom"), s.Name) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			next, err := base.With(tt.field, tt.value)
			require.NoError(t, err)
			tt.check(t, next)
			assert.NotEqual(t, base, next)
			assert.Equal(t, State{}, base, "receiver must not be mutated")

			got, ok := next.Get(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestState_WithErrors(t *testing.T) {
	s := State{Power: Some(true)}

	next, err := s.With(protocol.FieldPower, 1)
	assert.ErrorContains(t, err, "unexpected value type int")
	assert.Equal(t, s, next)

	_, err = s.With(protocol.FieldMode, "Boost")
	assert.Error(t, err)

	_, err = s.With("humidity", 1)
	assert.ErrorContains(t, err, "unknown field")
}

func TestState_Equality(t *testing.T) {
	a, err := State{}.With(protocol.FieldSetTemperature, 68)
	require.NoError(t, err)
	b, err := State{}.With(protocol.FieldSetTemperature, 68)
	require.NoError(t, err)
	assert.True(t, a == b)

	c, err := b.With(protocol.FieldSetTemperature, 69)
	require.NoError(t, err)
	assert.True(t, a != c)

	assert.True(t, a != a.WithConnected(true))
	assert.True(t, a == a.WithConnected(true).WithConnected(false))
}

func TestState_DisconnectKeepsValues(t *testing.T) {
	s := State{ActualTemperature: Some(70), Connected: true}
	off := s.WithConnected(false)
	assert.False(t, off.Connected)
	assert.Equal(t, Some(70), off.ActualTemperature)
}

func TestState_JSON(t *testing.T) {
	s := State{
		Power:          Some(true),
		Mode:           Some(protocol.ModeRegular),
		SetTemperature: Some(68),
		Connected:      true,
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"power": true,
		"mode": "Regular",
		"set_temperature": 68,
		"actual_temperature": null,
		"water_level": null,
		"pump_watts": null,
		"clean": null,
		"name": null,
		"connected": true
	}`, string(data))

	var back State
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestOptional(t *testing.T) {
	var o Optional[int]
	_, ok := o.Get()
	assert.False(t, ok)
	assert.Equal(t, 5, o.OrElse(5))
	assert.Equal(t, "-", o.String())

	o = Some(0)
	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, "0", o.String())
	assert.NotEqual(t, Optional[int]{}, o, "set zero differs from unset")
}
