package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
	"github.com/srg/ooler/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu      sync.Mutex
	msgs    []published
	err     error
	drained bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

func newTestPublisher(nc *fakeConn, subject string) *Publisher {
	p := newPublisher(nc, subject, testutils.DeviceAddress, logrus.New())
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestPublish_Payload(t *testing.T) {
	nc := &fakeConn{}
	p := newTestPublisher(nc, "bedroom.ooler")

	s := state.State{
		Power:          state.Some(true),
		Mode:           state.Some(protocol.ModeBoost),
		SetTemperature: state.Some(62),
		Connected:      true,
	}
	require.NoError(t, p.Publish(s))

	require.Len(t, nc.msgs, 1)
	assert.Equal(t, "bedroom.ooler", nc.msgs[0].subject)
	testutils.NewJSONAsserter(t).Assert(string(nc.msgs[0].data), `{
		"address": "AA:BB:CC:DD:EE:FF",
		"timestamp": "2026-01-02T03:04:05Z",
		"state": {
			"power": true,
			"mode": "Boost",
			"set_temperature": 62,
			"actual_temperature": null,
			"connected": true
		}
	}`)

	var msg Message
	require.NoError(t, json.Unmarshal(nc.msgs[0].data, &msg))
	assert.Equal(t, s, msg.State)
}

func TestPublish_DefaultSubject(t *testing.T) {
	p := newTestPublisher(&fakeConn{}, "")
	assert.Equal(t, DefaultSubject, p.Subject())
}

func TestPublish_Error(t *testing.T) {
	nc := &fakeConn{err: errors.New("nats: connection closed")}
	p := newTestPublisher(nc, "")

	err := p.Publish(state.State{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing to ooler.state")
	assert.NotPanics(t, func() { p.Callback()(state.State{}) })
}

func TestCallback_PublishesEverySnapshot(t *testing.T) {
	nc := &fakeConn{}
	p := newTestPublisher(nc, "")
	cb := p.Callback()

	cb(state.State{Connected: true})
	cb(state.State{Connected: false})

	assert.Len(t, nc.msgs, 2)
	require.NoError(t, p.Close())
	assert.True(t, nc.drained)
}
