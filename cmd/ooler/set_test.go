package main

import (
	"testing"

	"github.com/srg/ooler/internal/device"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SetTestSuite struct {
	CommandTestSuite
}

func TestSetTestSuite(t *testing.T) {
	suite.Run(t, new(SetTestSuite))
}

func (s *SetTestSuite) TestSet_WritesInOrder() {
	out, err := s.ExecuteCommand("set", testutils.DeviceAddress,
		"--temp", "60", "--power", "off", "--mode", "boost", "--format", "json")
	s.Require().NoError(err)

	writes := s.Transport.Writes()
	s.Require().Len(writes, 3)
	s.Equal(protocol.MustNormalizeUUID(protocol.PowerUUID), writes[0].UUID)
	s.Equal([]byte{0}, writes[0].Data)
	s.Equal(protocol.MustNormalizeUUID(protocol.ModeUUID), writes[1].UUID)
	s.Equal([]byte{2}, writes[1].Data)
	s.Equal(protocol.MustNormalizeUUID(protocol.SetTemperatureUUID), writes[2].UUID)
	s.Equal([]byte{60}, writes[2].Data)
	s.True(writes[2].WithResponse)

	testutils.NewJSONAsserter(s.T()).Assert(out, `{
		"address": "AA:BB:CC:DD:EE:FF",
		"state": {
			"power": false,
			"mode": "Boost",
			"set_temperature": 60,
			"actual_temperature": 70,
			"connected": true
		}
	}`)
	s.Equal(1, s.Transport.ConnectCalls())
	s.Equal(1, s.Transport.DisconnectCalls())
}

func (s *SetTestSuite) TestSet_NothingToSet() {
	_, err := s.ExecuteCommand("set", testutils.DeviceAddress)

	s.ErrorIs(err, ErrNothingToSet)
	s.Equal(0, s.Transport.ConnectCalls())
}

func (s *SetTestSuite) TestSet_InvalidFlagsNeverConnect() {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "power", args: []string{"--power", "maybe"}, want: "--power"},
		{name: "mode", args: []string{"--mode", "turbo"}, want: "--mode"},
		{name: "clean", args: []string{"--clean", "2"}, want: "--clean"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.ExecuteCommand(append([]string{"set", testutils.DeviceAddress}, tt.args...)...)
			s.ErrorContains(err, tt.want)
		})
	}
	s.Equal(0, s.Transport.ConnectCalls())
}

func (s *SetTestSuite) TestSet_OutOfRangeTemperatureNeverConnects() {
	_, err := s.ExecuteCommand("set", testutils.DeviceAddress, "--temp", "300")

	var eerr *protocol.EncodeError
	s.ErrorAs(err, &eerr)
	s.Equal(0, s.Transport.ConnectCalls())
	s.Contains(FormatUserError(err), "invalid value")
}

func (s *SetTestSuite) TestSet_CleanUnsupportedOnV1() {
	_, err := s.ExecuteCommand("set", testutils.DeviceAddress, "--clean", "on")

	s.ErrorIs(err, device.ErrUnsupported)
	s.Contains(FormatUserError(err), "not supported")
	s.Empty(s.Transport.Writes())
}

func (s *SetTestSuite) TestSet_StopsAtFirstFailure() {
	s.Transport.WithWriteError(protocol.ModeUUID, assert.AnError)

	_, err := s.ExecuteCommand("set", testutils.DeviceAddress, "--power", "off", "--mode", "silent", "--temp", "55")

	s.ErrorContains(err, "setting mode")
	s.Len(s.Transport.Writes(), 1, "power was written, temperature was not")
}

func TestParseSwitch(t *testing.T) {
	for _, in := range []string{"on", "ON", "true", "1", "yes", " on "} {
		v, err := parseSwitch(in)
		require.NoError(t, err, in)
		assert.True(t, v, in)
	}
	for _, in := range []string{"off", "false", "0", "no"} {
		v, err := parseSwitch(in)
		require.NoError(t, err, in)
		assert.False(t, v, in)
	}
	_, err := parseSwitch("toggle")
	assert.Error(t, err)
}

func TestParseSettings_Order(t *testing.T) {
	cmd := newSetCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--clean", "off", "--temp", "65", "--power", "on"}))

	settings, err := parseSettings(cmd)
	require.NoError(t, err)

	var names []string
	for _, st := range settings {
		names = append(names, st.name)
	}
	assert.Equal(t, []string{"power", "temperature", "cleaning"}, names)
}
