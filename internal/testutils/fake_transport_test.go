package testutils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeTransport_ReadWriteEcho(t *testing.T) {
	ft := NewFakeTransport().WithValue(protocol.PowerUUID, 0)
	h, err := ft.Connect(t.Context(), DeviceAddress, nil)
	require.NoError(t, err)

	data, err := ft.Read(t.Context(), h, "7A2623FFBD924C13BE9F7023AA4ECB85")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)

	require.NoError(t, ft.Write(t.Context(), h, protocol.PowerUUID, []byte{1}, false))
	assert.Equal(t, []byte{1}, ft.Value(protocol.PowerUUID))
	assert.Equal(t, []Write{{UUID: protocol.MustNormalizeUUID(protocol.PowerUUID), Data: []byte{1}}}, ft.Writes())

	_, err = ft.Read(t.Context(), h, protocol.ModeUUID)
	assert.ErrorIs(t, err, transport.ErrCharacteristicNotFound)
}

func TestFakeTransport_Errors(t *testing.T) {
	boom := errors.New("boom")
	ft := NewFakeTransport().
		WithValue(protocol.PowerUUID, 0).
		WithReadError(protocol.PowerUUID, boom).
		WithWriteError(protocol.ModeUUID, boom)

	h, err := ft.Connect(t.Context(), DeviceAddress, nil)
	require.NoError(t, err)

	_, err = ft.Read(t.Context(), h, protocol.PowerUUID)
	assert.ErrorIs(t, err, boom)
	err = ft.Write(t.Context(), h, protocol.ModeUUID, []byte{0}, false)
	assert.ErrorIs(t, err, boom)

	ft.WithReadError(protocol.PowerUUID, nil)
	_, err = ft.Read(t.Context(), h, protocol.PowerUUID)
	assert.NoError(t, err)

	ft.WithConnectError(boom)
	_, err = ft.Connect(t.Context(), DeviceAddress, nil)
	var terr *transport.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "connect", terr.Op)
}

func TestFakeTransport_ConnectDelayHonoursContext(t *testing.T) {
	ft := NewFakeTransport().WithConnectDelay(time.Second)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := ft.Connect(ctx, DeviceAddress, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ft.ConnectCalls())
}

func TestFakeTransport_NotifyAndDrop(t *testing.T) {
	ft := NewFakeTransport()
	drops := 0
	h, err := ft.Connect(t.Context(), DeviceAddress, func() { drops++ })
	require.NoError(t, err)

	var got []byte
	require.NoError(t, ft.Subscribe(t.Context(), h, protocol.ModeUUID, func(_ string, data []byte) { got = data }))
	assert.True(t, ft.Subscribed(protocol.ModeUUID))
	assert.True(t, ft.Notify(protocol.ModeUUID, 2))
	assert.Equal(t, []byte{2}, got)
	assert.False(t, ft.Notify(protocol.PowerUUID, 1))

	ft.DropConnection()
	ft.DropConnection()
	assert.Equal(t, 1, drops)
	assert.False(t, ft.IsLive(h))
	assert.Equal(t, 0, ft.SubscriptionCount())
	assert.Equal(t, 0, ft.DisconnectCalls(), "a drop is not an explicit disconnect")

	_, err = ft.Read(t.Context(), h, protocol.ModeUUID)
	assert.True(t, transport.IsDisconnected(err))
}

func TestFakeTransport_Disconnect(t *testing.T) {
	ft := NewFakeTransport()
	drops := 0
	h, err := ft.Connect(t.Context(), DeviceAddress, func() { drops++ })
	require.NoError(t, err)

	require.NoError(t, ft.Disconnect(t.Context(), h))
	require.NoError(t, ft.Disconnect(t.Context(), h))
	assert.Equal(t, 1, ft.DisconnectCalls())
	assert.Equal(t, 0, drops)

	ft.DropConnection()
	assert.Equal(t, 0, drops, "closed session cannot drop")
}
