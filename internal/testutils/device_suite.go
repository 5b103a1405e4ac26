package testutils

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// DeviceAddress is the peer address used by suites built on FakeTransportSuite.
const DeviceAddress = "AA:BB:CC:DD:EE:FF"

// FakeTransportSuite provides a fresh FakeTransport per test.
//
//	type ConnectSuite struct {
//	    testutils.FakeTransportSuite
//	}
//
//	func (s *ConnectSuite) SetupTest() {
//	    s.FakeTransportSuite.SetupTest()
//	    s.Transport.WithOolerValues(1, 1, 68, 70)
//	}
type FakeTransportSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	Transport *FakeTransport
}

// SetupSuite is called once before all tests in the suite.
func (s *FakeTransportSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest gives every test its own transport.
func (s *FakeTransportSuite) SetupTest() {
	s.Transport = NewFakeTransport()
}

func (s *FakeTransportSuite) TearDownTest() {
	s.Transport = nil
}

// WaitFor waits up to TestTimeout for cond.
func (s *FakeTransportSuite) WaitFor(cond func() bool, msgAndArgs ...any) {
	s.Require().Eventually(cond, s.TestTimeout, 5*time.Millisecond, msgAndArgs...)
}
