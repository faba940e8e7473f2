package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/render"
)

// recordsTimeLayout is used for the Start and End columns.
const recordsTimeLayout = "2006-01-02 15:04:05.000"

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records [log-file]",
		Short: "List reconstructed upgrade records",
		Long: `Reconstruct upgrade intervals from a log and print them in
first-observed order.

With --format json the data is the canonical snapshot: sorted keys,
UTC timestamps with microsecond precision and durations in
microseconds.

Examples:
  upgradeviz records upgrade.log
  upgradeviz records --format json < upgrade.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(rootOpts, inputArg(args), cmd)
		},
	}

	return cmd
}

func runRecords(opts *RootOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	rec, err := reconstruct(context.Background(), cfg, path, cmd.InOrStdin(), logger)
	if err != nil {
		return err
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Format == "json" {
		data, err := ir.MarshalSnapshot(rec.Snapshot)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to marshal snapshot", err).WithCode(ErrCodeRenderFailed)
		}
		return formatter.Success(json.RawMessage(data))
	}

	writeRecordsTable(cmd.OutOrStdout(), rec.Snapshot, IsColorEnabled(cmd.OutOrStdout()))
	formatter.VerboseLog("%s", newSummaryData(rec.Summary))
	return nil
}

// writeRecordsTable writes one row per record.
func writeRecordsTable(w io.Writer, s ir.Snapshot, color bool) {
	if s.Empty() {
		fmt.Fprintln(w, render.EmptyMessage)
		return
	}

	fmt.Fprintf(w, "%4s  %-25s  %-11s  %-11s  %-23s  %-23s  %10s  %s\n",
		"#", "Entity", "Status", "Start", "Started", "Ended", "Duration", "Versions")
	fmt.Fprintln(w, strings.Repeat("─", 130))

	for i, r := range s.Records {
		end := "-"
		if r.Ended() {
			end = r.End.Format(recordsTimeLayout)
		}
		fmt.Fprintf(w, "%4d  %-25s  %s  %-11s  %-23s  %-23s  %10s  %s\n",
			i+1,
			render.TruncateLabel(r.Entity, 25),
			statusCell(color, r.Status),
			string(r.StartKind),
			r.Start.Format(recordsTimeLayout),
			end,
			durationCell(r),
			versionsCell(r),
		)
	}

	if s.Overall.Set() {
		fmt.Fprintf(w, "\nOverall start: %s\n", s.Overall.Start.Format(recordsTimeLayout))
	}
}

// statusCell pads before coloring so escape codes don't skew the columns.
func statusCell(color bool, s ir.Status) string {
	cell := fmt.Sprintf("%-11s", string(s))
	switch s {
	case ir.StatusComplete:
		return colorize(color, colorGreen, cell)
	case ir.StatusInProgress:
		return colorize(color, colorYellow, cell)
	default:
		return colorize(color, colorGray, cell)
	}
}

func durationCell(r ir.IntervalRecord) string {
	if !r.Ended() {
		return "-"
	}
	return render.HumanDuration(r.Duration().Round(time.Millisecond))
}

func versionsCell(r ir.IntervalRecord) string {
	switch {
	case r.PrevVersion != "" || r.CurrVersion != "":
		return orDash(r.PrevVersion) + " -> " + orDash(r.CurrVersion)
	case r.TargetVersion != "":
		return "-> " + r.TargetVersion
	default:
		return ""
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
