package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Entity   string // optional - one gateway across runs
}

// RunSummary is the JSON form of an archived run header.
type RunSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Source       string `json:"source"`
	ToolVersion  string `json:"tool_version"`
	Lines        int    `json:"lines"`
	Records      int    `json:"records"`
	Unrecognized int    `json:"unrecognized"`
	Diagnostics  int    `json:"diagnostics"`
}

// EntityRun is one archived record of a single entity.
type EntityRun struct {
	RunID     string         `json:"run_id"`
	CreatedAt string         `json:"created_at"`
	Record    map[string]any `json:"record"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Long: `List runs archived with "render --db", newest first.

With --entity, list that gateway's record from every archived run
instead.

Examples:
  upgradeviz history --db runs.db
  upgradeviz history --db runs.db --entity gw-17
  upgradeviz history --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "show one gateway across runs")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeStoreFailed)
	}
	defer st.Close()

	if opts.Entity != "" {
		return entityHistory(ctx, st, opts.Entity, formatter)
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err).WithCode(ErrCodeStoreFailed)
	}

	if opts.Format == "json" {
		summaries := make([]RunSummary, len(runs))
		for i, run := range runs {
			summaries[i] = newRunSummary(run)
		}
		return formatter.Success(summaries)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs archived.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %7s  %5s  %s\n", "Run", "Created", "Records", "Diag", "Source")
	fmt.Fprintln(w, strings.Repeat("─", 90))
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %7s  %5d  %s\n",
			run.ID,
			run.CreatedAt.Format(time.DateTime),
			humanize.Comma(int64(run.Records)),
			run.Diagnostics,
			run.Source,
		)
	}
	fmt.Fprintf(w, "\n%s run(s)\n", humanize.Comma(int64(len(runs))))
	return nil
}

func entityHistory(ctx context.Context, st *store.Store, entity string, formatter *OutputFormatter) error {
	entries, err := st.EntityHistory(ctx, entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err).WithCode(ErrCodeStoreFailed)
	}

	if formatter.Format == "json" {
		out := make([]EntityRun, len(entries))
		for i, e := range entries {
			out[i] = EntityRun{
				RunID:     e.RunID,
				CreatedAt: ir.FormatTime(e.CreatedAt),
				Record:    ir.CanonicalRecord(e.Record),
			}
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintf(w, "No archived records for %s.\n", entity)
		return nil
	}

	color := IsColorEnabled(w)
	fmt.Fprintf(w, "%-36s  %-19s  %-11s  %-11s  %s\n", "Run", "Created", "Status", "Start", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", 96))
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s  %-19s  %s  %-11s  %s\n",
			e.RunID,
			e.CreatedAt.Format(time.DateTime),
			statusCell(color, e.Record.Status),
			string(e.Record.StartKind),
			durationCell(e.Record),
		)
	}
	return nil
}

// archiveRun saves a reconstruction in the database at path.
func archiveRun(ctx context.Context, path string, rec reconstruction) (store.Run, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeStoreFailed)
	}
	defer st.Close()

	run, err := st.SaveRun(ctx, store.Run{
		Source:       rec.Source,
		Lines:        rec.Summary.Lines,
		Recognized:   rec.Summary.Recognized,
		Unrecognized: rec.Summary.Unrecognized,
		Duplicates:   rec.Summary.Duplicates,
		Diagnostics:  len(rec.Summary.Diagnostics),
	}, rec.Snapshot)
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to archive run", err).WithCode(ErrCodeStoreFailed)
	}
	return run, nil
}

func newRunSummary(run store.Run) RunSummary {
	return RunSummary{
		ID:           run.ID,
		CreatedAt:    ir.FormatTime(run.CreatedAt),
		Source:       run.Source,
		ToolVersion:  run.ToolVersion,
		Lines:        run.Lines,
		Records:      run.Records,
		Unrecognized: run.Unrecognized,
		Diagnostics:  run.Diagnostics,
	}
}
