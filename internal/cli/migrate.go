package cli

import (
	"fmt"
	"io"

	"backoffice/internal/database"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(rootOpts, cmd.OutOrStdout())
			return withEnv(rootOpts, func(env *Env) error {
				if err := database.Migrate(env.DB); err != nil {
					return out.failure(err)
				}
				return out.success(map[string]bool{"migrated": true}, func(w io.Writer) {
					fmt.Fprintln(w, "✓ schema up to date")
				})
			})
		},
	}
}
