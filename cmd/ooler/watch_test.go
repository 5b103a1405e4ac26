package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/srg/ooler/internal/device"
	"github.com/srg/ooler/internal/groutine"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/testutils"
	"github.com/stretchr/testify/suite"
)

type WatchTestSuite struct {
	CommandTestSuite
	originalPublisher func(url, subject, address string, logger *logrus.Logger) (statePublisher, error)
}

func TestWatchTestSuite(t *testing.T) {
	suite.Run(t, new(WatchTestSuite))
}

func (s *WatchTestSuite) SetupSuite() {
	s.CommandTestSuite.SetupSuite()
	s.originalPublisher = newPublisher
}

func (s *WatchTestSuite) TearDownSuite() {
	newPublisher = s.originalPublisher
	s.CommandTestSuite.TearDownSuite()
}

type fakePublisher struct {
	mu      sync.Mutex
	url     string
	subject string
	states  []state.State
	closed  bool
}

func (p *fakePublisher) Callback() func(state.State) {
	return func(st state.State) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.states = append(p.states, st)
	}
}

func (p *fakePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// onceSubscribed runs fn in the background as soon as the watch command
// has subscribed to every v1 characteristic.
func (s *WatchTestSuite) onceSubscribed(fn func()) {
	ft := s.Transport
	go func() {
		deadline := time.Now().Add(s.TestTimeout)
		for ft.SubscriptionCount() < 4 {
			if time.Now().After(deadline) {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		fn()
	}()
}

// decodeReports parses JSON-lines watch output.
func (s *WatchTestSuite) decodeReports(out string) []stateReport {
	var reports []stateReport
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var r stateReport
		s.Require().NoError(json.Unmarshal([]byte(line), &r), line)
		reports = append(reports, r)
	}
	return reports
}

func (s *WatchTestSuite) TestWatch_StreamsNotifications() {
	ft := s.Transport
	s.onceSubscribed(func() { ft.Notify(protocol.ActualTemperatureUUID, 66) })

	out, err := s.ExecuteCommand("watch", testutils.DeviceAddress,
		"--duration", "300ms", "--poll", "0", "--format", "json")
	s.Require().NoError(err)

	reports := s.decodeReports(out)
	s.Require().GreaterOrEqual(len(reports), 2)
	s.True(reports[0].State.Connected)
	s.Equal(state.Some(70), reports[0].State.ActualTemperature)
	s.Equal(state.Some(66), reports[1].State.ActualTemperature)
	s.Equal(testutils.DeviceAddress, reports[1].Address)
	s.False(reports[1].Timestamp.IsZero())
}

func (s *WatchTestSuite) TestWatch_PollPicksUpChanges() {
	ft := s.Transport
	// Change the value without a notification; only a poll can see it.
	s.onceSubscribed(func() { ft.WithValue(protocol.SetTemperatureUUID, 58) })

	out, err := s.ExecuteCommand("watch", testutils.DeviceAddress,
		"--duration", "400ms", "--poll", "20ms", "--format", "json")
	s.Require().NoError(err)

	var seen bool
	for _, r := range s.decodeReports(out) {
		if r.State.SetTemperature == state.Some(58) {
			seen = true
		}
	}
	s.True(seen, "polled change should be printed:\n%s", out)
	s.Greater(s.Transport.ReadCalls(), 4)
}

func (s *WatchTestSuite) TestWatch_ReconnectsAfterDrop() {
	ft := s.Transport
	s.onceSubscribed(func() { ft.DropConnection() })

	_, err := s.ExecuteCommand("watch", testutils.DeviceAddress, "--duration", "400ms", "--poll", "20ms")
	s.Require().NoError(err)

	s.GreaterOrEqual(s.Transport.ConnectCalls(), 2)
}

func (s *WatchTestSuite) TestWatch_TableLines() {
	out, err := s.ExecuteCommand("watch", testutils.DeviceAddress, "--duration", "50ms", "--poll", "0")
	s.Require().NoError(err)

	first := strings.SplitN(out, "\n", 2)[0]
	s.Contains(first, "connected=on power=on mode=Regular set_temperature=68 actual_temperature=70")
}

func (s *WatchTestSuite) TestWatch_PublishesToNATS() {
	pub := &fakePublisher{}
	newPublisher = func(url, subject, _ string, _ *logrus.Logger) (statePublisher, error) {
		pub.url, pub.subject = url, subject
		return pub, nil
	}

	_, err := s.ExecuteCommand("watch", testutils.DeviceAddress,
		"--duration", "50ms", "--poll", "0", "--nats-url", "nats://127.0.0.1:4222", "--nats-subject", "bedroom")
	s.Require().NoError(err)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	s.Equal("nats://127.0.0.1:4222", pub.url)
	s.Equal("bedroom", pub.subject)
	s.True(pub.closed)
	s.Require().NotEmpty(pub.states)
	s.True(pub.states[0].Connected)
}

func (s *WatchTestSuite) TestWatch_CancelledContext() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.ExecuteCommandContext(ctx, "watch", testutils.DeviceAddress, "--poll", "0")

	s.NoError(err)
	s.Equal(1, s.Transport.DisconnectCalls())
}

func (s *WatchTestSuite) TestPollLoop_LogsFailureWithGoroutineName() {
	logger, hook := logtest.NewNullLogger()
	s.Transport.WithConnectError(errors.New("out of range"))
	dev, err := device.New(s.Transport, device.Options{
		Address: "AA:BB:CC:DD:EE:FF",
		Profile: protocol.V1(),
		Logger:  logger,
	})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.T().Context())
	done := groutine.Go(ctx, "watch-poll", func(ctx context.Context) {
		pollLoop(ctx, &session{dev: dev, logger: logger}, 10*time.Millisecond)
	})

	s.WaitFor(func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "Poll failed" {
				return e.Data["goroutine"] == "watch-poll"
			}
		}
		return false
	}, "poll failure logged with goroutine name")
	cancel()
	<-done
	s.Positive(s.Transport.ConnectCalls())
}
