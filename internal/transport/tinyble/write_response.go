//go:build darwin || windows

package tinyble

import (
	"github.com/sirupsen/logrus"
)

type responseWriter interface {
	Write(p []byte) (int, error)
}

func writeWithResponse(c responseWriter, data []byte, _ *logrus.Entry) error {
	_, err := c.Write(data)
	return err
}
