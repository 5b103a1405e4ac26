package main

import (
	"bytes"
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/testutils"
	"github.com/srg/ooler/internal/transport"
	"github.com/srg/ooler/pkg/config"
)

// CommandTestSuite runs commands against a FakeTransport. All cmd/ooler
// suites embed it.
type CommandTestSuite struct {
	testutils.FakeTransportSuite

	originalTransport func(*config.Config, *logrus.Logger) (transport.Transport, func(), error)
	released          int
}

func (s *CommandTestSuite) SetupSuite() {
	s.FakeTransportSuite.SetupSuite()
	color.NoColor = true
	s.originalTransport = newTransport
}

func (s *CommandTestSuite) TearDownSuite() {
	newTransport = s.originalTransport
}

func (s *CommandTestSuite) SetupTest() {
	s.FakeTransportSuite.SetupTest()
	s.Transport.WithOolerValues(1, 1, 68, 70)
	s.released = 0

	newTransport = func(*config.Config, *logrus.Logger) (transport.Transport, func(), error) {
		return s.Transport, func() { s.released++ }, nil
	}
}

// ExecuteCommand runs the CLI with args and returns what it wrote to stdout.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	return s.ExecuteCommandContext(context.Background(), args...)
}

func (s *CommandTestSuite) ExecuteCommandContext(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}
