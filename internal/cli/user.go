package cli

import (
	"fmt"
	"io"

	"backoffice/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewCreateUserCommand creates the create-user command, used to bootstrap the
// first admin before anyone can log in.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	var req service.CreateUserRequest
	var company string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutput(rootOpts, cmd.OutOrStdout())

			if len(req.Password) < 6 {
				return out.failure(fmt.Errorf("password must have at least 6 characters"))
			}
			if company != "" {
				id, err := uuid.Parse(company)
				if err != nil {
					return out.failure(fmt.Errorf("invalid --company %q: %w", company, err))
				}
				req.CompanyID = &id
			}

			return withEnv(rootOpts, func(env *Env) error {
				user, err := env.authService().CreateUser(cmdContext(cmd), service.SystemActor(), req)
				if err != nil {
					return out.failure(fmt.Errorf("failed to create user: %w", err))
				}
				return out.success(user, func(w io.Writer) {
					fmt.Fprintf(w, "✓ created %s %s (%s)\n", user.Role, user.Username, user.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Username, "username", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (min 6 characters)")
	cmd.Flags().StringVar(&req.Role, "role", "", "admin, manager or staff")
	cmd.Flags().StringVar(&company, "company", "", "company UUID (required for manager and staff)")
	for _, name := range []string{"email", "username", "password", "role"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
