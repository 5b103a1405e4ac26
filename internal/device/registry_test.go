package device

import (
	"testing"

	"github.com/srg/ooler/internal/state"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_FiresInInsertionOrder(t *testing.T) {
	r := NewRegistry(nil)
	var order []int
	for i := range 5 {
		r.Register(func(state.State) { order = append(order, i) })
	}

	r.Fire(state.State{})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	unregister := r.Register(func(state.State) { calls++ })
	assert.Equal(t, 1, r.Len())

	unregister()
	unregister()
	assert.Equal(t, 0, r.Len())

	r.Fire(state.State{})
	assert.Equal(t, 0, calls)
}

func TestRegistry_UnregisterFromCallback(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	var unregister func()
	unregister = r.Register(func(state.State) {
		calls++
		unregister()
	})

	r.Fire(state.State{})
	r.Fire(state.State{})
	assert.Equal(t, 1, calls)
}

func TestRegistry_PanicDoesNotStopOthers(t *testing.T) {
	r := NewRegistry(nil)
	var got state.State
	r.Register(func(state.State) { panic("subscriber bug") })
	r.Register(func(s state.State) { got = s })

	want := state.State{Connected: true}
	assert.NotPanics(t, func() { r.Fire(want) })
	assert.Equal(t, want, got)
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{State: ConnectFailed, Address: "AA:BB", Msg: "dial"}
	assert.Equal(t, "connect_failed AA:BB: dial", err.Error())
	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.NotErrorIs(t, err, ErrSetupFailed)
	assert.True(t, IsConnectionState(err, ConnectFailed))
	assert.False(t, IsConnectionState(assert.AnError, ConnectFailed))
}
