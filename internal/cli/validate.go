package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/upgradeviz/internal/classify"
	"github.com/roach88/upgradeviz/internal/config"
)

// ValidationIssue is one problem found in a config file.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Path   string            `json:"path"`
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a config file without reading any log",
		Long: `Load a YAML or CUE config file, unify it with the built-in schema and
compile its line patterns.

The file defaults to --config; with neither, the built-in defaults are
checked.

Exit codes:
  0 - Config is valid
  1 - Config is invalid
  2 - Command error (file not found, etc.)

Examples:
  upgradeviz validate upgradeviz.yaml
  upgradeviz validate --config upgradeviz.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.Config
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	name := path
	if name == "" {
		name = "(defaults)"
	}

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("config file not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "config file not found", err).WithCode(ErrCodeNotFound)
	}
	if err != nil {
		return outputValidationErrors(formatter, name, []ValidationIssue{issueFor(err)})
	}
	formatter.VerboseLog("Loaded %s (clock=%s, width=%d)", name, cfg.Clock, cfg.Chart.Width)

	if _, err := classify.New(cfg.Patterns); err != nil {
		return outputValidationErrors(formatter, name, []ValidationIssue{issueFor(err)})
	}
	formatter.VerboseLog("Compiled line patterns")

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Path: name, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", name)
	return nil
}

func issueFor(err error) ValidationIssue {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return ValidationIssue{Field: verr.Field, Message: verr.Message, Code: ErrCodeConfigInvalid}
	}
	return ValidationIssue{Message: err.Error(), Code: ErrCodeConfigInvalid}
}

// outputValidationErrors outputs the issues and returns a validation failure.
func outputValidationErrors(formatter *OutputFormatter, name string, issues []ValidationIssue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues))).
		WithCode(ErrCodeConfigInvalid)

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Path: name, Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintf(formatter.Writer, "✗ %s is invalid\n", name)
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", issue.Code, issue.Field, issue.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
	}
	return failure
}
