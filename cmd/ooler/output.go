package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/srg/ooler/internal/protocol"
	"github.com/srg/ooler/internal/state"
)

var (
	onColor    = color.New(color.FgGreen)
	offColor   = color.New(color.FgRed)
	unsetColor = color.New(color.Faint)
)

// stateReport is the JSON shape of status and watch output.
type stateReport struct {
	Address   string      `json:"address"`
	Timestamp time.Time   `json:"timestamp,omitzero"`
	State     state.State `json:"state"`
}

// printState writes one snapshot as a FIELD/VALUE table or as JSON. Only
// the fields the profile maps are listed in the table.
func printState(w io.Writer, format, address string, profile *protocol.Profile, st state.State) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stateReport{Address: address, State: st})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	fmt.Fprintln(tw, strings.Repeat("-", 30))
	fmt.Fprintf(tw, "address\t%s\n", address)
	fmt.Fprintf(tw, "connected\t%s\n", formatBool(st.Connected))
	for _, ch := range profile.Characteristics() {
		fmt.Fprintf(tw, "%s\t%s\n", ch.Field, formatField(st, ch.Field))
	}
	return tw.Flush()
}

// printChange writes one watch event: a single line in table mode, one
// JSON object per line otherwise.
func printChange(w io.Writer, format, address string, profile *protocol.Profile, at time.Time, st state.State) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(stateReport{Address: address, Timestamp: at.UTC(), State: st})
	}

	parts := []string{at.Format("15:04:05"), "connected=" + formatBool(st.Connected)}
	for _, ch := range profile.Characteristics() {
		parts = append(parts, fmt.Sprintf("%s=%s", ch.Field, formatField(st, ch.Field)))
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}

func formatField(st state.State, field protocol.Field) string {
	v, ok := st.Get(field)
	if !ok {
		return unsetColor.Sprint("-")
	}
	switch tv := v.(type) {
	case bool:
		return formatBool(tv)
	case string:
		return fmt.Sprintf("%q", tv)
	default:
		return fmt.Sprint(tv)
	}
}

func formatBool(b bool) string {
	if b {
		return onColor.Sprint("on")
	}
	return offColor.Sprint("off")
}
