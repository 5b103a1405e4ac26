// Package publish forwards device state snapshots to NATS.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/srg/ooler/internal/state"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "ooler.state"

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Message is the JSON payload published for every state change.
type Message struct {
	Address   string      `json:"address"`
	Timestamp time.Time   `json:"timestamp"`
	State     state.State `json:"state"`
}

// Publisher sends state snapshots to a NATS subject with core publish (no
// persistence). It is meant to be registered as a device callback.
type Publisher struct {
	nc      conn
	subject string
	address string
	logger  *logrus.Logger
	now     func() time.Time
}

// Connect dials url and returns a publisher for address. It reconnects
// forever in the background once the first connection succeeds.
func Connect(url, subject, address string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	log := logger.WithField("nats_url", url)

	nc, err := nats.Connect(url,
		nats.Name("ooler"),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS connection lost")
			}
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return newPublisher(nc, subject, address, logger), nil
}

func newPublisher(nc conn, subject, address string, logger *logrus.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{
		nc:      nc,
		subject: subject,
		address: address,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *Publisher) Subject() string {
	return p.subject
}

// Publish sends one snapshot.
func (p *Publisher) Publish(s state.State) error {
	data, err := json.Marshal(Message{
		Address:   p.address,
		Timestamp: p.now().UTC(),
		State:     s,
	})
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}
	return nil
}

// Callback adapts Publish to a device callback. Failures are logged; a
// device callback has nowhere to return them.
func (p *Publisher) Callback() func(state.State) {
	return func(s state.State) {
		if err := p.Publish(s); err != nil {
			p.logger.WithError(err).WithField("subject", p.subject).Warn("Failed to publish state")
		}
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
