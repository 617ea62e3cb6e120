package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/axiomson/axiomson/internal/config"
	"github.com/axiomson/axiomson/internal/eval"
	"github.com/axiomson/axiomson/internal/score"
)

// ValidationError describes one rejected expression or update rule.
type ValidationError struct {
	Equation string `json:"equation"`
	Field    string `json:"field"` // "expression" or "updates[i]"
	Message  string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Equations int               `json:"equations"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Check a config without rendering",
		Long: `Compile-check every equation expression and update rule in a config.

Catches symbol and syntax errors before a render is attempted. Faster
than a full render for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		if outErr := formatter.Error(ErrCodeConfig, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	eqs := cfg.Resolve()
	formatter.VerboseLog("Found %d equation(s) in %s", len(eqs), path)

	result := ValidationResult{Valid: true, Equations: len(eqs)}
	for _, eq := range eqs {
		result.Errors = append(result.Errors, validateEquation(eq)...)
	}
	if len(result.Errors) > 0 {
		result.Valid = false
	}

	if formatter.Format == "json" {
		var outErr error
		if result.Valid {
			outErr = formatter.Success(result)
		} else {
			outErr = formatter.Error(ErrCodeInvalid, "validation failed", result)
		}
		if outErr != nil {
			return outErr
		}
	} else {
		writeValidationText(formatter, result)
	}

	if !result.Valid {
		return WrapExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)), nil)
	}
	return nil
}

// validateEquation compile-checks the expression and every update rule
// of one equation. Update rules may additionally reference t.
func validateEquation(eq score.Equation) []ValidationError {
	ev := eval.New()
	var errs []ValidationError

	if _, err := ev.Compile(eq.Expr, score.VarNames); err != nil {
		errs = append(errs, ValidationError{
			Equation: eq.Name,
			Field:    "expression",
			Message:  err.Error(),
		})
	}

	updateSymbols := append(append([]string{}, score.VarNames...), "t")
	for i, rule := range eq.Updates {
		lhs, rhs, ok := strings.Cut(rule, "=")
		if !ok {
			errs = append(errs, ValidationError{
				Equation: eq.Name,
				Field:    fmt.Sprintf("updates[%d]", i),
				Message:  fmt.Sprintf("rule %q has no = sign", rule),
			})
			continue
		}
		name := strings.TrimSpace(lhs)
		if !isKnownVar(name) {
			errs = append(errs, ValidationError{
				Equation: eq.Name,
				Field:    fmt.Sprintf("updates[%d]", i),
				Message:  fmt.Sprintf("unknown variable %q on left-hand side", name),
			})
			continue
		}
		if _, err := ev.Compile(strings.TrimSpace(rhs), updateSymbols); err != nil {
			errs = append(errs, ValidationError{
				Equation: eq.Name,
				Field:    fmt.Sprintf("updates[%d]", i),
				Message:  err.Error(),
			})
		}
	}
	return errs
}

func isKnownVar(name string) bool {
	for _, v := range score.VarNames {
		if v == name {
			return true
		}
	}
	return false
}

func writeValidationText(f *OutputFormatter, result ValidationResult) {
	if result.Valid {
		fmt.Fprintf(f.Writer, "OK: %d equation(s) valid\n", result.Equations)
		return
	}
	fmt.Fprintf(f.Writer, "INVALID: %d error(s) in %d equation(s)\n", len(result.Errors), result.Equations)
	for _, e := range result.Errors {
		fmt.Fprintf(f.Writer, "  %s %s: %s\n", e.Equation, e.Field, e.Message)
	}
}
