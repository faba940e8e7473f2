package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/classify"
	"github.com/roach88/upgradeviz/internal/config"
	"github.com/roach88/upgradeviz/internal/engine"
	"github.com/roach88/upgradeviz/internal/ir"
	"github.com/roach88/upgradeviz/internal/source"
)

// newLogger builds the logger for one command invocation.
// Logs always go to w (stderr) so they never mix with the document or JSON.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// loadConfig loads --config, or the defaults when it is unset.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err).WithCode(ErrCodeConfigInvalid)
	}
	return cfg, nil
}

// reconstruction is the outcome of folding one input.
type reconstruction struct {
	Source   string
	Snapshot ir.Snapshot
	Summary  engine.Summary
}

// reconstruct opens path (stdin for "" or "-") and folds it into a snapshot.
// Malformed lines are diagnostics, not errors; only an unreadable input fails.
func reconstruct(ctx context.Context, cfg config.Config, path string, stdin io.Reader, logger *slog.Logger) (reconstruction, error) {
	c, err := classify.New(cfg.Patterns)
	if err != nil {
		return reconstruction{}, WrapExitError(ExitCommandError, "failed to compile patterns", err).WithCode(ErrCodeConfigInvalid)
	}

	in, err := source.Open(path, stdin)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return reconstruction{}, WrapExitError(ExitCommandError, "failed to open input", err).WithCode(ErrCodeNotFound)
		}
		return reconstruction{}, WrapExitError(ExitCommandError, "failed to open input", err).WithCode(ErrCodeInputFailed)
	}
	defer in.Close()

	logger.Debug("reading input", "source", in.Name, "compression", string(in.Compression))

	snap, summary, err := engine.Reconstruct(ctx, c, in, logger)
	if err != nil {
		return reconstruction{}, WrapExitError(ExitCommandError, "failed to read input", err).WithCode(ErrCodeInputFailed)
	}

	logger.Debug("input folded",
		"source", in.Name,
		"lines", summary.Lines,
		"recognized", summary.Recognized,
		"unrecognized", summary.Unrecognized,
		"records", len(snap.Records),
		"diagnostics", len(summary.Diagnostics),
	)
	return reconstruction{Source: in.Name, Snapshot: snap, Summary: summary}, nil
}

// inputArg returns the optional positional input path.
func inputArg(args []string) string {
	if len(args) == 0 {
		return source.Stdin
	}
	return args[0]
}

// signalContext returns a context cancelled on SIGINT/SIGTERM or when the
// command's own context is done.
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// summaryData is the JSON form of an engine.Summary.
type summaryData struct {
	Lines        int      `json:"lines"`
	Recognized   int      `json:"recognized"`
	Unrecognized int      `json:"unrecognized"`
	Duplicates   int      `json:"duplicates"`
	Retroactive  int      `json:"retroactive"`
	Diagnostics  []string `json:"diagnostics"`
}

func newSummaryData(s engine.Summary) summaryData {
	d := summaryData{
		Lines:        s.Lines,
		Recognized:   s.Recognized,
		Unrecognized: s.Unrecognized,
		Duplicates:   s.Duplicates,
		Retroactive:  s.Retroactive,
		Diagnostics:  make([]string, len(s.Diagnostics)),
	}
	for i, diag := range s.Diagnostics {
		d.Diagnostics[i] = diag.String()
	}
	return d
}

func (d summaryData) String() string {
	return fmt.Sprintf("%d lines, %d recognized, %d unrecognized, %d diagnostics",
		d.Lines, d.Recognized, d.Unrecognized, len(d.Diagnostics))
}
