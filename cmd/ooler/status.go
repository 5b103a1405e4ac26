package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <device-address>",
		Short: "Read and print the device state",
		Long: `Connects, reads every characteristic of the protocol profile, prints the
state and disconnects.

Examples:
  ooler status AA:BB:CC:DD:EE:FF
  ooler status AA:BB:CC:DD:EE:FF --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	address := args[0]
	s, err := openSession(cmd, address, false)
	if err != nil {
		return err
	}
	defer s.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd)
	defer cancel()

	progress := NewProgressPrinter(cmd.OutOrStdout(), fmt.Sprintf("Reading %s", address), "Connecting")
	progress.Start()
	err = s.connect(ctx)
	progress.Stop()
	if err != nil {
		return err
	}

	return printState(cmd.OutOrStdout(), s.cfg.OutputFormat, address, s.profile, s.dev.State())
}
