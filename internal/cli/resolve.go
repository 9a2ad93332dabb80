package cli

import (
	"fmt"

	"backoffice/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var uf, regime, company string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the fiscal treatment for a UF and regime",
		Long: `Run the resolver exactly as the API does and print the outcome as JSON.
Without --company only platform-wide rules are considered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(rootOpts, cmd.OutOrStdout())

			req := service.ResolveRequest{UF: uf, Regime: regime}
			if company != "" {
				id, err := uuid.Parse(company)
				if err != nil {
					return out.failure(fmt.Errorf("invalid --company %q: %w", company, err))
				}
				req.CompanyID = &id
			}

			return withEnv(rootOpts, func(env *Env) error {
				outcome, err := env.resolutionService().Resolve(cmdContext(cmd), service.SystemActor(), req)
				if err != nil {
					return out.failure(err)
				}
				if out.json() {
					return out.writeJSON(CLIResponse{Status: "ok", Data: outcome})
				}
				return out.writeJSON(outcome)
			})
		},
	}

	cmd.Flags().StringVar(&uf, "uf", "", "destination state (e.g. SP)")
	cmd.Flags().StringVar(&regime, "regime", "", "tax regime (NORMAL|SIMPLES)")
	cmd.Flags().StringVar(&company, "company", "", "company UUID whose overrides apply")
	_ = cmd.MarkFlagRequired("uf")
	_ = cmd.MarkFlagRequired("regime")
	return cmd
}
