package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type ProfilesTestSuite struct {
	CommandTestSuite
}

func TestProfilesTestSuite(t *testing.T) {
	suite.Run(t, new(ProfilesTestSuite))
}

func (s *ProfilesTestSuite) TestProfiles_Table() {
	out, err := s.ExecuteCommand("profiles")
	s.Require().NoError(err)

	s.Contains(out, "Profile v1 (disconnect delay 2m0s)")
	s.Regexp(`power\s+`+protocol.MustNormalizeUUID(protocol.PowerUUID)+`\s+-\s+bool\s+1\s+true\s+no-response`, out)
	s.Regexp(`set_temperature\s+\S+\s+-\s+int\s+1\s+true\s+with-response`, out)
	s.Equal(0, s.Transport.ConnectCalls())
}

func (s *ProfilesTestSuite) TestProfiles_JSONWithFile() {
	path, err := testutils.FixturePath("testdata/profiles/extended.yaml")
	s.Require().NoError(err)

	out, err := s.ExecuteCommand("profiles", "--profile-file", path, "--format", "json")
	s.Require().NoError(err)

	var reports []profileReport
	s.Require().NoError(json.Unmarshal([]byte(out), &reports))
	s.Require().Len(reports, 2)
	s.Equal("v1", reports[0].Name)
	s.Len(reports[0].Characteristics, 4)

	ext := reports[1]
	s.Equal("extended", ext.Name)
	s.Equal("5m0s", ext.DisconnectDelay)
	s.Require().Len(ext.Characteristics, 8)
	s.Equal(characteristicReport{
		UUID:   "1003",
		Field:  "clean",
		Kind:   "bool",
		Width:  1,
		Notify: true,
	}, ext.Characteristics[6])
	s.Equal(2, ext.Characteristics[5].Width, "pump_watts")
	s.Equal("Device Name", ext.Characteristics[7].SIGName)
	s.Equal("string", ext.Characteristics[7].Kind)
	s.Zero(ext.Characteristics[7].Width)
	s.False(ext.Characteristics[7].Notify)
}

func (s *ProfilesTestSuite) TestProfiles_InvalidFile() {
	path := filepath.Join(s.T().TempDir(), "bad.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("name: bad\ncharacteristics: []\n"), 0o600))

	_, err := s.ExecuteCommand("profiles", "--profile-file", path)

	s.ErrorContains(err, "no characteristics")
}
