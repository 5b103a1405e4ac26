package main

import (
	"testing"

	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type VerifyTestSuite struct {
	CommandTestSuite
}

func TestVerifyTestSuite(t *testing.T) {
	suite.Run(t, new(VerifyTestSuite))
}

func (s *VerifyTestSuite) TestVerify_Responsive() {
	out, err := s.ExecuteCommand("verify", testutils.DeviceAddress, "--settle", "0s")
	s.Require().NoError(err)

	s.Equal("AA:BB:CC:DD:EE:FF is responsive\n", out)
	s.Len(s.Transport.Writes(), 2)
	s.Equal([]byte{1}, s.Transport.Value(protocol.PowerUUID), "power restored")
}

func (s *VerifyTestSuite) TestVerify_NoEcho() {
	s.Transport.WithoutEcho()

	out, err := s.ExecuteCommand("verify", testutils.DeviceAddress, "--settle", "1ms", "--format", "json")

	s.ErrorIs(err, ErrNoEcho)
	testutils.NewJSONAsserter(s.T()).Assert(out, `{"address": "AA:BB:CC:DD:EE:FF", "echoed": false}`)
	s.Len(s.Transport.Writes(), 2, "original value written back")
}

func (s *VerifyTestSuite) TestVerify_NegativeSettle() {
	_, err := s.ExecuteCommand("verify", testutils.DeviceAddress, "--settle", "-1s")

	s.ErrorContains(err, "--settle")
	s.Equal(0, s.Transport.ConnectCalls())
}
