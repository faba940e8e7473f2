package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/stats"
)

// StatsResult is the JSON payload of the stats command.
type StatsResult struct {
	Source  string       `json:"source"`
	Report  stats.Report `json:"report"`
	Summary summaryData  `json:"summary"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [log-file]",
		Short: "Summarize upgrade durations",
		Long: `Reconstruct upgrade intervals from a log and report duration
statistics: counts, minimum and maximum (with the gateway that holds
them), average, standard deviation and a histogram.

Records whose start was never observed are counted but excluded from
the duration figures.

Examples:
  upgradeviz stats upgrade.log
  upgradeviz stats --format json < upgrade.log`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, inputArg(args), cmd)
		},
	}

	return cmd
}

func runStats(opts *RootOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	rec, err := reconstruct(context.Background(), cfg, path, cmd.InOrStdin(), logger)
	if err != nil {
		return err
	}

	report := stats.Compute(rec.Snapshot)

	if opts.Format == "json" {
		formatter := &OutputFormatter{
			Format: opts.Format,
			Writer: cmd.OutOrStdout(),
		}
		return formatter.Success(StatsResult{
			Source:  rec.Source,
			Report:  report,
			Summary: newSummaryData(rec.Summary),
		})
	}

	if err := stats.WriteText(cmd.OutOrStdout(), report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err).WithCode(ErrCodeWriteFailed)
	}
	return nil
}
