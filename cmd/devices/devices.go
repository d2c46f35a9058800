package devices

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/device"
)

// Command creates the devices command, which lists output devices so the
// user can pick a UID for the monitor command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List output audio devices and their supported sample rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDevices(cmd)
		},
	}
}

func listDevices(cmd *cobra.Command) error {
	registry := device.NewRegistry()

	outputs, err := registry.Outputs()
	if err != nil {
		return fmt.Errorf("listing output devices: %w", err)
	}

	defaultUID := ""
	if d, err := registry.DefaultOutput(); err == nil {
		defaultUID = d.UID
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUID\tRATE\tSUPPORTED\tSETTABLE")
	for i := range outputs {
		d := &outputs[i]
		name := d.Name
		if d.UID == defaultUID {
			name += " (default)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\n",
			name, d.UID, d.NominalRate, formatRanges(d.SupportedRates), d.Settable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(outputs) == 0 {
		fmt.Fprintln(os.Stderr, "no output devices found")
	}
	return nil
}

func formatRanges(ranges []device.RateRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.Min == r.Max {
			parts = append(parts, fmt.Sprintf("%d", r.Min))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Min, r.Max))
		}
	}
	return strings.Join(parts, ", ")
}
