package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCmd(c *container) *cobra.Command {
	var count bool
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the object types of the app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			if count {
				counts, err := client.TypesCount(cmd.Context())
				if err != nil {
					return err
				}
				return c.printResult(cmd, counts)
			}
			types, err := client.Types(cmd.Context())
			if err != nil {
				return err
			}
			return c.printResult(cmd, types)
		},
	}
	cmd.Flags().BoolVar(&count, "count", false, "Show the number of objects per type")
	return cmd
}

func newMeCmd(c *container) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed in user or app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			me, err := client.Me(cmd.Context(), token)
			if err != nil {
				return err
			}
			if me == nil {
				return fmt.Errorf("not authenticated")
			}
			return c.printResult(cmd, me)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token to authenticate with instead of the stored one")
	return cmd
}

func newNewIDCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "newid",
		Short: "Generate a new id on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			id, err := client.NewID(cmd.Context())
			if err != nil {
				return err
			}
			printLine(cmd, id)
			return nil
		},
	}
}

func newTimestampCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "timestamp",
		Short: "Print the server time in milliseconds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			ts, err := client.Timestamp(cmd.Context())
			if err != nil {
				return err
			}
			printLine(cmd, ts)
			return nil
		},
	}
}
