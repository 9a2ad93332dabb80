package cli

import (
	"fmt"
	"io"

	"backoffice/internal/fiscal"

	"github.com/spf13/cobra"
)

// ValidateResult is the JSON payload of a successful validate run.
type ValidateResult struct {
	Valid bool `json:"valid"`
	Rules int  `json:"rules"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules.yaml>",
		Short: "Validate rule drafts without saving them",
		Long: `Validate every rule draft in a YAML file with the same checks the API
applies on create. Every violation is reported; the exit status is non-zero
when any rule is invalid. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newOutput(opts, cmd.OutOrStdout())

	drafts, err := LoadRules(path)
	if err != nil {
		if verr, ok := fiscal.AsValidationError(err); ok {
			return out.violations(verr.Violations)
		}
		return out.failure(err)
	}

	validator := fiscal.NewValidator()
	var violations []fiscal.Violation
	for i, d := range drafts {
		violations = append(violations, prefixViolations(i, validator.Validate(d).Violations)...)
	}
	if len(violations) > 0 {
		return out.violations(violations)
	}

	return out.success(ValidateResult{Valid: true, Rules: len(drafts)}, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %d rule(s) valid\n", len(drafts))
	})
}
