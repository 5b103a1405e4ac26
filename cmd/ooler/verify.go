package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// ErrNoEcho is returned when the device accepted the probe write but did
// not act on it.
var ErrNoEcho = errors.New("device accepted the write but did not apply it")

var verifySettle time.Duration

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <device-address>",
		Short: "Check that the device acts on writes",
		Long: `Reads power, writes the opposite value, waits for the device to settle and
reads it back. The original value is written back afterwards. A device that
keeps a link open but ignores writes fails this check.

Examples:
  ooler verify AA:BB:CC:DD:EE:FF
  ooler verify AA:BB:CC:DD:EE:FF --settle 5s`,
		Args: cobra.ExactArgs(1),
		RunE: runVerify,
	}
	cmd.Flags().DurationVar(&verifySettle, "settle", 2*time.Second, "Wait between the probe write and the read-back")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	address := args[0]
	if verifySettle < 0 {
		return fmt.Errorf("--settle must not be negative")
	}

	s, err := openSession(cmd, address, false)
	if err != nil {
		return err
	}
	defer s.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd)
	defer cancel()

	progress := NewProgressPrinter(cmd.OutOrStdout(), fmt.Sprintf("Verifying %s", address), "Connecting")
	progress.Start()
	defer progress.Stop()

	if err := s.connect(ctx); err != nil {
		return err
	}
	progress.SetPhase("Probing")
	echoed, err := s.dev.Verify(ctx, verifySettle)
	if err != nil {
		return err
	}
	progress.Stop()

	out := cmd.OutOrStdout()
	if s.cfg.OutputFormat == "json" {
		if err := json.NewEncoder(out).Encode(map[string]any{"address": address, "echoed": echoed}); err != nil {
			return err
		}
	} else if echoed {
		fmt.Fprintf(out, "%s is responsive\n", address)
	}

	if !echoed {
		return ErrNoEcho
	}
	return nil
}
