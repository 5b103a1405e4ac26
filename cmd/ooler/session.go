package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/ooler/internal/device"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/transport"
	"github.com/srg/ooler/internal/transport/goble"
	"github.com/srg/ooler/internal/transport/tinyble"
	"github.com/srg/ooler/pkg/config"
)

// newTransport builds the configured BLE backend and a function releasing
// it. Tests replace it with a fake.
var newTransport = func(cfg *config.Config, logger *logrus.Logger) (transport.Transport, func(), error) {
	switch cfg.Backend {
	case config.BackendTinyGo:
		return tinyble.New(logger), func() {}, nil
	case config.BackendGoBLE:
		t := goble.New(logger, cfg.ConnectTimeout)
		return t, func() { _ = t.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// session bundles what every device command needs.
type session struct {
	cfg     *config.Config
	logger  *logrus.Logger
	profile *protocol.Profile
	dev     *device.Device
	address string
	release func()
}

// openSession resolves config, logger, profile and transport for address.
// keepAlive disables the idle disconnect for long-running commands.
func openSession(cmd *cobra.Command, address string, keepAlive bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	profile, err := cfg.LoadProfile()
	if err != nil {
		return nil, err
	}

	idle := cfg.ResolveIdleTimeout(profile)
	if keepAlive {
		idle = 0
	}

	t, release, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	dev, err := device.New(t, device.Options{
		Address:     address,
		Profile:     profile,
		IdleTimeout: idle,
		Logger:      logger,
	})
	if err != nil {
		release()
		return nil, err
	}

	return &session{
		cfg:     cfg,
		logger:  logger,
		profile: profile,
		dev:     dev,
		address: address,
		release: release,
	}, nil
}

// connect connects within the configured connect timeout.
func (s *session) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	return s.dev.Connect(ctx)
}

func (s *session) Close() {
	if err := s.dev.Stop(context.Background()); err != nil {
		s.logger.WithError(err).Debug("Disconnect failed")
	}
	s.release()
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
