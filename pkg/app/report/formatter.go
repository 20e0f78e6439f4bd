// Package report renders command results as a table, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/deploymenttheory/go-smrsim/internal/types"
	"gopkg.in/yaml.v3"
)

// Render writes v to w in format
func Render(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		return formatJSON(w, v)
	case "yaml":
		return formatYAML(w, v)
	case "table", "":
		return formatTable(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats results as a table
func formatTable(out io.Writer, v any) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	switch r := v.(type) {
	case Value:
		fmt.Fprintf(w, "%s:\t%v\n", r.Name, r.Value)
	case ZoneList:
		zoneTable(w, r)
	case StatsReport:
		statsTable(w, r)
	case types.DeviceConfig:
		configTable(w, r)
	case Violation:
		fmt.Fprintf(w, "Last %s error:\t%d (%s)\n", r.Direction, r.Code, r.Name)
	case IOResult:
		ioTable(w, r)
	case string:
		fmt.Fprintln(w, r)
	default:
		return fmt.Errorf("no table layout for %T", v)
	}
	return w.Flush()
}

func zoneTable(w io.Writer, r ZoneList) {
	if len(r.Zones) == 0 {
		fmt.Fprintf(w, "No zones match %s.\n", r.Criteria)
		return
	}

	fmt.Fprintf(w, "ZONE\tSTART LBA\tLENGTH\tWP\tCHECKPOINT\tCONDITION\tTYPE\tFLAG\n")
	fmt.Fprintf(w, "----\t---------\t------\t--\t----------\t---------\t----\t----\n")
	for _, z := range r.Zones {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%s\t%s\t0x%02x\n",
			z.Start, z.Start*uint64(z.Length), z.Length, z.WritePtrOffset,
			z.CheckpointOffset, z.Condition, z.Type, z.Flag)
	}
	fmt.Fprintf(w, "\n%d zones (%s)\n", len(r.Zones), r.Criteria)
}

func statsTable(w io.Writer, r StatsReport) {
	s := r.Stats
	fmt.Fprintf(w, "Zones:\t%d\n", s.NumZones)
	fmt.Fprintf(w, "Idle time max:\t%d s\n", s.Device.IdleTimeMax)
	fmt.Fprintf(w, "Idle time min:\t%d s\n\n", s.Device.IdleTimeMin)

	fmt.Fprintf(w, "ZONE\tR BEYOND WP\tR SPAN\tW NOT ON WP\tW SPAN\tW UNALIGNED\n")
	fmt.Fprintf(w, "----\t-----------\t------\t-----------\t------\t-----------\n")
	shown := 0
	for i, z := range s.Zones {
		if !r.All && z == (types.ZoneStats{}) {
			continue
		}
		shown++
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\n", i,
			z.Read.BeyondWPCount, z.Read.SpanZonesCount,
			z.Write.NotOnWPCount, z.Write.SpanZonesCount, z.Write.UnalignedCount)
	}
	if shown == 0 {
		fmt.Fprintln(w, "(no violations recorded)")
	}
}

func configTable(w io.Writer, c types.DeviceConfig) {
	fmt.Fprintf(w, "Out-of-policy read:\t%s\n", permitLabel(c.ReadPermitted()))
	fmt.Fprintf(w, "Out-of-policy write:\t%s\n", permitLabel(c.WritePermitted()))
	fmt.Fprintf(w, "Read penalty:\t%d ms\n", c.ReadPenaltyMillis)
	fmt.Fprintf(w, "Write penalty:\t%d ms\n", c.WritePenaltyMillis)
	if c.Passthrough() {
		fmt.Fprintf(w, "Passthrough:\tyes\n")
	}
}

func ioTable(w io.Writer, r IOResult) {
	fmt.Fprintf(w, "Direction:\t%s\n", r.Direction)
	fmt.Fprintf(w, "LBA:\t%d (%d sectors)\n", r.LBA, r.Sectors)
	fmt.Fprintf(w, "Zone:\t%d\n", r.Zone)
	fmt.Fprintf(w, "Outcome:\t%s\n", r.Outcome)
	if len(r.Violations) > 0 {
		fmt.Fprintf(w, "Violations:\t%s\n", strings.Join(r.Violations, ", "))
	}
	if r.Penalty > 0 {
		fmt.Fprintf(w, "Penalty:\t%v\n", r.Penalty)
	}
	if r.Override != "" {
		fmt.Fprintf(w, "Override:\t%s\n", r.Override)
	}
	if r.Output != "" {
		fmt.Fprintf(w, "Output:\t%s\n", r.Output)
	}
}

func permitLabel(on bool) string {
	if on {
		return "permit"
	}
	return "reject"
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(v)
}
