package cmd

import (
	"fmt"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/cobra"
)

func newLinkCmd(c *container) *cobra.Command {
	var (
		pf   pageFlags
		list string
	)
	cmd := &cobra.Command{
		Use:   "link <type> <id> [id2]",
		Short: "Link two objects or list linked objects",
		Long: `Link the object <type>/<id> to the object with id2, or with --list <type2>
print the objects of type2 linked to it.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			obj := paraclient.NewObject(args[1], args[0])
			if list != "" {
				objects, err := client.LinkedObjects(cmd.Context(), obj, list, pf.pager())
				if err != nil {
					return err
				}
				return c.printResult(cmd, objects)
			}
			if len(args) < 3 {
				return fmt.Errorf("link needs the id of the second object or --list")
			}
			linkID, err := client.Link(cmd.Context(), obj, args[2])
			if err != nil {
				return err
			}
			if linkID == "" {
				return fmt.Errorf("server did not create a link")
			}
			printLine(cmd, linkID)
			return nil
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&list, "list", "", "List linked objects of this type instead of linking")
	return cmd
}

func newUnlinkCmd(c *container) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "unlink <type> <id> [type2 id2]",
		Short: "Remove a link between two objects",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(4)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			obj := paraclient.NewObject(args[1], args[0])
			if all {
				return client.UnlinkAll(cmd.Context(), obj)
			}
			return client.Unlink(cmd.Context(), obj, args[2], args[3])
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove every link of the object")
	return cmd
}
