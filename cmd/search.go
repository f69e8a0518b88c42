package cmd

import (
	"github.com/spf13/cobra"
)

func newSearchCmd(c *container) *cobra.Command {
	var (
		pf       pageFlags
		terms    []string
		matchAll bool
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "search <type> [query]",
		Short: "Search objects of a type",
		Long: `Search objects of a type with a query string, e.g. para search dog "name:Rex".
With --terms the search matches exact field values instead; with --tags it
returns objects carrying the given tags.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pager := pf.pager()
			switch {
			case len(terms) > 0:
				fields, err := parseProps(terms)
				if err != nil {
					return err
				}
				objects, err := client.FindTerms(ctx, args[0], fields, matchAll, pager)
				if err != nil {
					return err
				}
				return c.printResult(cmd, objects)
			case len(tags) > 0:
				objects, err := client.FindTagged(ctx, args[0], tags, pager)
				if err != nil {
					return err
				}
				return c.printResult(cmd, objects)
			default:
				query := "*"
				if len(args) > 1 {
					query = args[1]
				}
				objects, err := client.FindQuery(ctx, args[0], query, pager)
				if err != nil {
					return err
				}
				return c.printResult(cmd, objects)
			}
		},
	}
	pf.register(cmd)
	cmd.Flags().StringArrayVar(&terms, "terms", nil, "Field term as key=value (repeatable)")
	cmd.Flags().BoolVar(&matchAll, "match-all", true, "Require all terms to match")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma separated tags")
	return cmd
}

func newCountCmd(c *container) *cobra.Command {
	var terms []string
	cmd := &cobra.Command{
		Use:   "count <type>",
		Short: "Count objects of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			if len(terms) == 0 {
				n, err := client.Count(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLine(cmd, n)
				return nil
			}
			fields, err := parseProps(terms)
			if err != nil {
				return err
			}
			n, err := client.CountTerms(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			printLine(cmd, n)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&terms, "terms", nil, "Only count objects matching key=value (repeatable)")
	return cmd
}
