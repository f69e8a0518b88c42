package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignInCmd(c *container) *cobra.Command {
	var (
		provider string
		token    string
	)
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in a user and keep the issued JWT",
		Long: `Exchange an identity provider token for a Para JWT, e.g.
para signin --provider password --token "user@example.com::secret".
The JWT is stored under --token-dir and used by later commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if provider == "" || token == "" {
				return fmt.Errorf("--provider and --token are required")
			}
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			user, err := client.SignIn(cmd.Context(), provider, token, true)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("sign in with %s was rejected", provider)
			}
			return c.printResult(cmd, user)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Identity provider, e.g. facebook, github, password")
	cmd.Flags().StringVar(&token, "token", "", "Token issued by the provider")
	return cmd
}

func newSignOutCmd(c *container) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored JWT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			if revoke {
				if _, err := client.RevokeAllTokens(cmd.Context()); err != nil {
					return err
				}
			}
			client.SignOut(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Also revoke every token issued to the user")
	return cmd
}
