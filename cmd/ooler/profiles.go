package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/srg/ooler/internal/bledb"
	"github.com/srg/ooler/internal/protocol"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List protocol profiles and their characteristic maps",
		Long: `Lists the built-in protocol profiles. With --profile-file the file is
loaded, validated and listed as well.`,
		Args: cobra.NoArgs,
		RunE: runProfiles,
	}
}

type characteristicReport struct {
	UUID              string `json:"uuid"`
	SIGName           string `json:"sig_name,omitempty"`
	Field             string `json:"field"`
	Kind              string `json:"kind"`
	Width             int    `json:"width"`
	Signed            bool   `json:"signed,omitempty"`
	Notify            bool   `json:"notify"`
	WriteWithResponse bool   `json:"write_with_response"`
}

type profileReport struct {
	Name            string                 `json:"name"`
	DisconnectDelay string                 `json:"disconnect_delay"`
	Characteristics []characteristicReport `json:"characteristics"`
}

func newProfileReport(p *protocol.Profile) profileReport {
	r := profileReport{Name: p.Name(), DisconnectDelay: p.DisconnectDelay().String()}
	for _, ch := range p.Characteristics() {
		r.Characteristics = append(r.Characteristics, characteristicReport{
			UUID:              ch.UUID,
			SIGName:           bledb.LookupCharacteristic(ch.UUID),
			Field:             string(ch.Field),
			Kind:              string(ch.Kind),
			Width:             ch.Width,
			Signed:            ch.Signed,
			Notify:            ch.Notify,
			WriteWithResponse: ch.WriteWithResponse,
		})
	}
	return r
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var reports []profileReport
	for _, name := range protocol.BuiltinNames() {
		p, err := protocol.Builtin(name)
		if err != nil {
			return err
		}
		reports = append(reports, newProfileReport(p))
	}
	if cfg.ProfileFile != "" {
		p, err := protocol.LoadProfile(cfg.ProfileFile)
		if err != nil {
			return err
		}
		reports = append(reports, newProfileReport(p))
	}

	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()
	if cfg.OutputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Profile %s (disconnect delay %s)\n", r.Name, r.DisconnectDelay)
		fmt.Fprintln(w, "FIELD\tUUID\tNAME\tKIND\tWIDTH\tNOTIFY\tWRITE")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for _, c := range r.Characteristics {
			write := "no-response"
			if c.WriteWithResponse {
				write = "with-response"
			}
			name := c.SIGName
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n", c.Field, c.UUID, name, c.Kind, c.Width, c.Notify, write)
		}
	}
	return w.Flush()
}
