package cli

import (
	"context"
	"fmt"
	"io"

	"backoffice/internal/fiscal"
	"backoffice/internal/service"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <rules.yaml>",
		Short: "Validate and store rule drafts in one transaction",
		Long: `Import every rule draft in a YAML file. Rules without companyId are
platform-wide. Either all rules are stored or, when any is invalid, none.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(rootOpts, cmd.OutOrStdout())

			drafts, err := LoadRules(args[0])
			if err != nil {
				if verr, ok := fiscal.AsValidationError(err); ok {
					return out.violations(verr.Violations)
				}
				return out.failure(err)
			}

			return withEnv(rootOpts, func(env *Env) error {
				res, err := env.ruleService().Import(cmdContext(cmd), service.SystemActor(), drafts)
				if err != nil {
					if verr, ok := fiscal.AsValidationError(err); ok {
						return out.violations(verr.Violations)
					}
					return out.failure(err)
				}
				return out.success(res, func(w io.Writer) {
					fmt.Fprintf(w, "✓ imported %d rule(s)\n", res.Imported)
					for _, r := range res.Rules {
						fmt.Fprintf(w, "  %s %s %s %s\n", r.ID, r.UF, r.Regime, r.Mode)
					}
				})
			})
		},
	}
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
