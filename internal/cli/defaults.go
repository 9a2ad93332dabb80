package cli

import (
	"fmt"
	"io"

	"backoffice/internal/fiscal"
	"backoffice/internal/service"

	"github.com/spf13/cobra"
)

// NewDefaultsCommand creates the defaults command.
func NewDefaultsCommand(rootOpts *RootOptions) *cobra.Command {
	var regime, mode string

	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the default CST/CSOSN table",
		Long: `Print the code applied when a rule leaves its CST or CSOSN empty,
for every regime and mode. Filter with --regime and --mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(rootOpts, cmd.OutOrStdout())

			// The default table needs neither a resolver nor a database.
			entries, err := service.NewResolutionService(nil, nil).Defaults(regime, mode)
			if err != nil {
				if verr, ok := fiscal.AsValidationError(err); ok {
					return out.violations(verr.Violations)
				}
				return out.failure(err)
			}

			return out.success(entries, func(w io.Writer) {
				fmt.Fprintf(w, "%-8s %-10s %-6s %s\n", "REGIME", "MODE", "FIELD", "CODE")
				for _, e := range entries {
					fmt.Fprintf(w, "%-8s %-10s %-6s %s\n", e.Regime, e.Mode, e.Field, e.Code)
				}
			})
		},
	}

	cmd.Flags().StringVar(&regime, "regime", "", "only this regime (NORMAL|SIMPLES)")
	cmd.Flags().StringVar(&mode, "mode", "", "only this mode (TRIBUTADO|ICMS_ST|ISENTO)")
	return cmd
}
