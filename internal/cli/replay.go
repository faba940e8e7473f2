package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/layout"
	"github.com/roach88/upgradeviz/internal/render"
	"github.com/roach88/upgradeviz/internal/source"
	"github.com/roach88/upgradeviz/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - latest run when empty
	Output   string // optional - document is only verified when empty
}

// ReplayResult holds the outcome of re-rendering one archived run.
type ReplayResult struct {
	RunID         string `json:"run_id"`
	Source        string `json:"source"`
	CreatedAt     string `json:"created_at"`
	Records       int    `json:"records"`
	Bytes         int    `json:"bytes"`
	Output        string `json:"output,omitempty"`
	Deterministic bool   `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-render an archived run and verify determinism",
		Long: `Load a run archived with "render --db" and render its snapshot again.

The snapshot is rendered twice with the stream clock and the two
documents are compared byte for byte. With --output the document is
also written out (- for stdout).

Exit codes:
  0 - Document reproduced deterministically
  1 - Determinism verification failed (documents differ)
  2 - Command error (database not found, unknown run, etc.)

Examples:
  upgradeviz replay --db runs.db
  upgradeviz replay --db runs.db --run 0198a3c4-... -o timeline.svg
  upgradeviz replay --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (default: latest)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "also write the document here (- for stdout)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err).WithCode(ErrCodeStoreFailed)
	}
	defer st.Close()

	id := opts.RunID
	if id == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err).WithCode(ErrCodeStoreFailed)
		}
		if len(runs) == 0 {
			return NewExitError(ExitCommandError, "no runs archived").WithCode(ErrCodeNotFound)
		}
		id = runs[0].ID
	}

	run, snap, err := st.LoadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id)).WithCode(ErrCodeNotFound)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load run", err).WithCode(ErrCodeStoreFailed)
	}
	logger.Debug("run loaded", "id", run.ID, "records", len(snap.Records))

	first, err := renderSnapshot(cfg.Chart, snap)
	if err != nil {
		return WrapExitError(ExitCommandError, "first render failed", err).WithCode(ErrCodeRenderFailed)
	}
	second, err := renderSnapshot(cfg.Chart, snap)
	if err != nil {
		return WrapExitError(ExitCommandError, "second render failed", err).WithCode(ErrCodeRenderFailed)
	}

	result := ReplayResult{
		RunID:         run.ID,
		Source:        run.Source,
		CreatedAt:     ir.FormatTime(run.CreatedAt),
		Records:       len(snap.Records),
		Bytes:         len(first),
		Output:        opts.Output,
		Deterministic: bytes.Equal(first, second),
	}

	if opts.Output == source.Stdin {
		if _, err := cmd.OutOrStdout().Write(first); err != nil {
			return WrapExitError(ExitCommandError, "failed to write document", err).WithCode(ErrCodeRenderFailed)
		}
		if !result.Deterministic {
			return NewExitError(ExitFailure, "determinism verification failed").WithCode(ErrCodeNondeterministic)
		}
		return nil
	}
	if opts.Output != "" {
		if _, err := writeFileAtomic(opts.Output, func(w io.Writer) error {
			_, err := w.Write(first)
			return err
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to write document", err).WithCode(ErrCodeWriteFailed)
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// renderSnapshot draws s with the stream clock so the result depends on
// nothing but the archived data.
func renderSnapshot(chart config.Chart, s ir.Snapshot) ([]byte, error) {
	now := engine.StreamClock{}.Now(s)
	l := layout.Compute(s, layout.OptionsFor(chart, now))

	var buf bytes.Buffer
	if err := render.New(chart).Render(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	if result.Deterministic {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}

	response := CLIResponse{
		Status: "error",
		Data:   result,
		RunID:  result.RunID,
		Error: &CLIError{
			Code:    ErrCodeNondeterministic,
			Message: "determinism verification failed",
		},
	}
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(response); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "determinism verification failed").WithCode(ErrCodeNondeterministic)
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "  Source:  %s\n", result.Source)
	fmt.Fprintf(w, "  Created: %s\n", result.CreatedAt)
	fmt.Fprintf(w, "  Records: %d\n", result.Records)
	fmt.Fprintf(w, "  Size:    %s\n", humanize.Bytes(uint64(result.Bytes)))
	if result.Output != "" {
		fmt.Fprintf(w, "  Output:  %s\n", result.Output)
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Document reproduced deterministically")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed").WithCode(ErrCodeNondeterministic)
}
