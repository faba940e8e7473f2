package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/layout"
	"github.com/roach88/upgradeviz/internal/render"
	"github.com/roach88/upgradeviz/internal/source"
	"github.com/roach88/upgradeviz/internal/stats"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output   string
	Width    int
	Title    string
	Now      string // "stream" | "wall"; empty uses the config
	Database string
	Follow   bool
	Debounce time.Duration
}

// RenderResult is reported after a document is written to a file.
type RenderResult struct {
	Output     string      `json:"output"`
	Bytes      int64       `json:"bytes"`
	Records    int         `json:"records"`
	InProgress bool        `json:"in_progress"` // any record still open
	Summary    summaryData `json:"summary"`
	RunID      string      `json:"run_id,omitempty"`
}

func (r RenderResult) String() string {
	s := fmt.Sprintf("Wrote %s (%s, %d records; %s)",
		r.Output, humanize.Bytes(uint64(r.Bytes)), r.Records, r.Summary)
	if r.RunID != "" {
		s += "\nArchived as run " + r.RunID
	}
	return s
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render [log-file]",
		Short: "Render an upgrade log as an SVG Gantt chart",
		Long: `Reconstruct upgrade intervals from a log and render them as a
self-contained interactive SVG document.

The log is read from the given file (gzip and zstd are detected
automatically) or from stdin. The document goes to stdout unless
--output names a file.

Malformed lines are skipped with a warning on stderr; they never fail
the command.

Examples:
  upgradeviz render < upgrade.log > timeline.svg
  upgradeviz render upgrade.log.gz -o timeline.svg --width 1600
  upgradeviz render upgrade.log -o timeline.svg --db runs.db
  upgradeviz render upgrade.log -o timeline.svg --follow`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, inputArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", source.Stdin, "output SVG file (- for stdout)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "document width in pixels (overrides config)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "chart title (overrides config)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "current time for open records (stream|wall)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Follow, "follow", false, "re-render whenever the log file changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", source.DefaultDebounce, "quiet period before re-rendering in follow mode")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := applyChartFlags(opts, cmd, &cfg); err != nil {
		return err
	}

	if opts.Follow {
		return followRender(opts, cfg, path, cmd, logger)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := renderOnce(ctx, opts, cfg, path, cmd, logger)
	if err != nil {
		return err
	}
	if opts.Output == source.Stdin {
		return nil
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(result)
}

// applyChartFlags layers --width, --title and --now over the config.
func applyChartFlags(opts *RenderOptions, cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("width") {
		cfg.Chart.Width = opts.Width
	}
	if cmd.Flags().Changed("title") {
		cfg.Chart.Title = opts.Title
	}
	switch {
	case opts.Now != "":
		cfg.Clock = opts.Now
	case opts.Follow:
		// Follow mode defaults to wall time.
		cfg.Clock = config.ClockWall
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid chart options", err).WithCode(ErrCodeConfigInvalid)
	}
	return nil
}

// renderOnce runs the whole pipeline over path once and writes the document.
func renderOnce(ctx context.Context, opts *RenderOptions, cfg config.Config, path string, cmd *cobra.Command, logger *slog.Logger) (RenderResult, error) {
	rec, err := reconstruct(ctx, cfg, path, cmd.InOrStdin(), logger)
	if err != nil {
		return RenderResult{}, err
	}

	now := engine.ClockFor(cfg.Clock).Now(rec.Snapshot)
	l := layout.Compute(rec.Snapshot, layout.OptionsFor(cfg.Chart, now))
	logger.Debug("layout computed",
		"rows", len(l.Rows),
		"ticks", len(l.Ticks),
		"span", l.Scale.Span.String(),
	)
	logger.Debug("statistics", "stats", stats.Compute(rec.Snapshot))

	r := render.New(cfg.Chart)
	result := RenderResult{
		Output:  opts.Output,
		Records:    len(rec.Snapshot.Records),
		InProgress: rec.Snapshot.InProgress(),
		Summary:    newSummaryData(rec.Summary),
	}

	if opts.Output == source.Stdin {
		cw := &countingWriter{w: cmd.OutOrStdout()}
		if err := r.Render(cw, l); err != nil {
			return RenderResult{}, WrapExitError(ExitCommandError, "failed to write document", err).WithCode(ErrCodeRenderFailed)
		}
		result.Bytes = cw.n
	} else {
		n, err := writeFileAtomic(opts.Output, func(w io.Writer) error {
			return r.Render(w, l)
		})
		if err != nil {
			return RenderResult{}, WrapExitError(ExitCommandError, "failed to write document", err).WithCode(ErrCodeWriteFailed)
		}
		result.Bytes = n
	}

	if opts.Database != "" {
		run, err := archiveRun(ctx, opts.Database, rec)
		if err != nil {
			return RenderResult{}, err
		}
		result.RunID = run.ID
		logger.Debug("run archived", "id", run.ID, "db", opts.Database)
	}

	return result, nil
}

// followRender re-renders path after every burst of writes until interrupted.
func followRender(opts *RenderOptions, cfg config.Config, path string, cmd *cobra.Command, logger *slog.Logger) error {
	if path == source.Stdin {
		return NewExitError(ExitCommandError, "--follow needs a log file argument, not stdin")
	}
	if opts.Output == source.Stdin {
		return NewExitError(ExitCommandError, "--follow needs --output to name a file")
	}
	if opts.Database != "" {
		return NewExitError(ExitCommandError, "--db cannot be combined with --follow")
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	logger.Info("following log", "path", path, "output", opts.Output)
	err := source.Follow(ctx, path, source.FollowOptions{Debounce: opts.Debounce, Logger: logger},
		func(ctx context.Context) error {
			result, err := renderOnce(ctx, opts, cfg, path, cmd, logger)
			if err != nil {
				return err
			}
			logger.Info("document written",
				"output", result.Output,
				"records", result.Records,
				"in_progress", result.InProgress,
				"size", humanize.Bytes(uint64(result.Bytes)),
			)
			return nil
		})
	if err != nil {
		return WrapExitError(ExitCommandError, "follow failed", err)
	}
	logger.Info("follow stopped")
	return nil
}

// writeFileAtomic writes via a temp file in the target directory and renames
// it into place, so a viewer never loads a half-written document.
func writeFileAtomic(path string, write func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name()) // No-op after a successful rename

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return 0, err
	}

	cw := &countingWriter{w: tmp}
	if err := write(cw); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
