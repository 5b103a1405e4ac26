package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/ooler/internal/device"
	"github.com/srg/ooler/internal/protocol"
)

var (
	setPower string
	setMode  string
	setTemp  int
	setClean string
)

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <device-address>",
		Short: "Change power, mode, target temperature or cleaning",
		Long: `Writes one or more settings and prints the resulting state. Settings are
applied in the order power, mode, temperature, cleaning; the first failure
stops the rest.

Examples:
  ooler set AA:BB:CC:DD:EE:FF --power on --temp 68
  ooler set AA:BB:CC:DD:EE:FF --mode boost
  ooler set AA:BB:CC:DD:EE:FF --clean on --profile-file ooler-v2.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runSet,
	}
	cmd.Flags().StringVar(&setPower, "power", "", "Power: on or off")
	cmd.Flags().StringVar(&setMode, "mode", "", "Pump mode: silent, regular or boost")
	cmd.Flags().IntVar(&setTemp, "temp", 0, "Target water temperature in the device's unit")
	cmd.Flags().StringVar(&setClean, "clean", "", "Cleaning cycle: on or off (extended profiles only)")
	return cmd
}

// setting is one parsed write.
type setting struct {
	name  string
	apply func(ctx context.Context, dev *device.Device) error
}

// parseSettings validates every flag before any connection is made.
func parseSettings(cmd *cobra.Command) ([]setting, error) {
	var out []setting

	if cmd.Flags().Changed("power") {
		on, err := parseSwitch(setPower)
		if err != nil {
			return nil, fmt.Errorf("--power: %w", err)
		}
		out = append(out, setting{"power", func(ctx context.Context, dev *device.Device) error {
			return dev.SetPower(ctx, on)
		}})
	}
	if cmd.Flags().Changed("mode") {
		mode, err := protocol.ParseMode(setMode)
		if err != nil {
			return nil, fmt.Errorf("--mode: %w", err)
		}
		out = append(out, setting{"mode", func(ctx context.Context, dev *device.Device) error {
			return dev.SetMode(ctx, mode)
		}})
	}
	if cmd.Flags().Changed("temp") {
		temp := setTemp
		out = append(out, setting{"temperature", func(ctx context.Context, dev *device.Device) error {
			return dev.SetTargetTemperature(ctx, temp)
		}})
	}
	if cmd.Flags().Changed("clean") {
		on, err := parseSwitch(setClean)
		if err != nil {
			return nil, fmt.Errorf("--clean: %w", err)
		}
		out = append(out, setting{"cleaning", func(ctx context.Context, dev *device.Device) error {
			return dev.SetCleaning(ctx, on)
		}})
	}

	if len(out) == 0 {
		return nil, ErrNothingToSet
	}
	return out, nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q (must be on or off)", s)
}

func runSet(cmd *cobra.Command, args []string) error {
	address := args[0]
	settings, err := parseSettings(cmd)
	if err != nil {
		return err
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

	progress := NewProgressPrinter(cmd.OutOrStdout(), fmt.Sprintf("Updating %s", address), "Connecting")
	progress.Start()
	defer progress.Stop()

	// The first write connects on demand, so a value the profile cannot
	// encode is rejected before the radio is touched.
	ctx, cancelOp := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancelOp()
	for _, st := range settings {
		progress.SetPhase("Writing " + st.name)
		if err := st.apply(ctx, s.dev); err != nil {
			return fmt.Errorf("setting %s: %w", st.name, err)
		}
	}
	progress.Stop()

	return printState(cmd.OutOrStdout(), s.cfg.OutputFormat, address, s.profile, s.dev.State())
}
