//go:build !darwin && !windows

package tinyble

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	writes [][]byte
	err    error
}

func (w *recordingWriter) WriteWithoutResponse(p []byte) (int, error) {
	w.writes = append(w.writes, append([]byte(nil), p...))
	if w.err != nil {
		return 0, w.err
	}
	return len(p), nil
}

func TestWriteWithResponse_FallsBackToWriteCommand(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	w := &recordingWriter{}

	err := writeWithResponse(w, []byte{68}, logger.WithField("char_uuid", "x"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{68}}, w.writes)

	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "writing without response")
}

func TestWriteWithResponse_PropagatesError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	w := &recordingWriter{err: errors.New("not permitted")}

	err := writeWithResponse(w, []byte{1}, logger.WithField("char_uuid", "x"))
	assert.EqualError(t, err, "not permitted")
	assert.Len(t, w.writes, 1)
}
