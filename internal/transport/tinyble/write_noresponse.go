//go:build !darwin && !windows

package tinyble

import (
	"github.com/sirupsen/logrus"
)

type responseWriter interface {
	WriteWithoutResponse(p []byte) (int, error)
}

// writeWithResponse falls back to a write command: the BlueZ backend of
// tinygo bluetooth has no acknowledged write.
func writeWithResponse(c responseWriter, data []byte, logger *logrus.Entry) error {
	logger.Debug("Write with response unavailable on this host, writing without response")
	_, err := c.WriteWithoutResponse(data)
	return err
}
