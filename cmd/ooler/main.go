package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the command tree. Flags are bound to package variables,
// so building a new tree also resets them to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ooler",
		Short: "Control an Ooler sleep system over Bluetooth Low Energy",
		Long: `Connects to an Ooler sleep system over BLE and:

- Reads power, mode and water temperature
- Changes power, mode, target temperature and cleaning
- Streams state changes, optionally to a NATS subject
- Probes whether the device really acts on writes`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		// Silence Cobra's "Error:" prefix - main() prints clean errors
		SilenceErrors: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSetCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newProfilesCmd())

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}
