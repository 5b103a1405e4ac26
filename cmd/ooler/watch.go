package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/ooler/internal/groutine"
	"github.com/srg/ooler/internal/publish"
	"github.com/srg/ooler/internal/state"
)

var (
	watchPoll        time.Duration
	watchDuration    time.Duration
	watchNATSURL     string
	watchNATSSubject string
)

// statePublisher receives every state change while watching.
type statePublisher interface {
	Callback() func(state.State)
	Close() error
}

// newPublisher connects the NATS sink. Tests replace it.
var newPublisher = func(url, subject, address string, logger *logrus.Logger) (statePublisher, error) {
	return publish.Connect(url, subject, address, logger)
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <device-address>",
		Short: "Stream state changes until interrupted",
		Long: `Stays connected and prints every state change as it happens: notifications
from the device, periodic polls and reconnects. The link is re-established on
the next poll after a drop. With --nats-url every change is also published as
JSON to a NATS subject.

Examples:
  ooler watch AA:BB:CC:DD:EE:FF
  ooler watch AA:BB:CC:DD:EE:FF --poll 10s --format json
  ooler watch AA:BB:CC:DD:EE:FF --nats-url nats://127.0.0.1:4222`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}
	cmd.Flags().DurationVar(&watchPoll, "poll", 30*time.Second, "Poll interval; 0 relies on notifications only")
	cmd.Flags().DurationVar(&watchDuration, "duration", 0, "Stop after this long; 0 runs until Ctrl+C")
	cmd.Flags().StringVar(&watchNATSURL, "nats-url", "", "Publish changes to this NATS server")
	cmd.Flags().StringVar(&watchNATSSubject, "nats-subject", "", "NATS subject (default from config, ooler.state)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	address := args[0]
	if watchPoll < 0 || watchDuration < 0 {
		return fmt.Errorf("--poll and --duration must not be negative")
	}

	s, err := openSession(cmd, address, true)
	if err != nil {
		return err
	}
	defer s.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd)
	defer cancel()
	if watchDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, watchDuration)
		defer cancel()
	}

	natsURL, subject := s.cfg.NATS.URL, s.cfg.NATS.Subject
	if watchNATSURL != "" {
		natsURL = watchNATSURL
	}
	if watchNATSSubject != "" {
		subject = watchNATSSubject
	}
	if natsURL != "" {
		pub, err := newPublisher(natsURL, subject, address, s.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				s.logger.WithError(err).Warn("Closing NATS connection failed")
			}
		}()
		s.dev.RegisterCallback(pub.Callback())
	}

	out := cmd.OutOrStdout()
	format := s.cfg.OutputFormat
	s.dev.RegisterCallback(func(st state.State) {
		if err := printChange(out, format, address, s.profile, time.Now(), st); err != nil {
			s.logger.WithError(err).Warn("Failed to print state change")
		}
	})

	if err := s.connect(ctx); err != nil {
		return ignoreCancel(err)
	}

	if watchPoll > 0 {
		<-groutine.Go(ctx, "watch-poll", func(ctx context.Context) {
			pollLoop(ctx, s, watchPoll)
		})
	} else {
		<-ctx.Done()
	}
	return nil
}

// pollLoop polls until ctx ends. A failed poll is logged; the next tick
// reconnects if the link dropped.
func pollLoop(ctx context.Context, s *session, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.dev.Poll(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).WithField("goroutine", groutine.GetName(ctx)).Warn("Poll failed")
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
