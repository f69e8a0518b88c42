package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// parseProps turns key=value pairs into properties. Values that parse as
// JSON keep their type, anything else is a string.
func parseProps(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q: expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		props[key] = v
	}
	return props, nil
}

type pageFlags struct {
	limit uint64
	page  uint64
	sort  string
	desc  bool
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&p.limit, "limit", 30, "Results per page")
	cmd.Flags().Uint64Var(&p.page, "page", 1, "Page number")
	cmd.Flags().StringVar(&p.sort, "sort", "", "Field to sort by")
	cmd.Flags().BoolVar(&p.desc, "desc", true, "Sort in descending order")
}

func (p *pageFlags) pager() *paraclient.Pager {
	return paraclient.NewPagerSorted(p.page, p.sort, p.desc, p.limit)
}

func newGetCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Read an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			obj, err := client.Read(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if obj == nil {
				return fmt.Errorf("object %s/%s not found", args[0], args[1])
			}
			return c.printResult(cmd, obj)
		},
	}
}

func newCreateCmd(c *container) *cobra.Command {
	var (
		id       string
		name     string
		parentID string
		tags     []string
		props    []string
	)
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create an object",
		Long: `Create an object of the given type. Custom fields are set with --set key=value;
values that are valid JSON keep their type, e.g. --set age=3 --set tags='["a"]'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseProps(props)
			if err != nil {
				return err
			}
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			obj := paraclient.NewObject(id, args[0])
			if name != "" {
				obj.Name = name
			}
			obj.ParentID = parentID
			if len(tags) > 0 {
				obj.Tags = tags
			}
			if err := obj.SetFields(fields); err != nil {
				return err
			}
			created, err := client.Create(cmd.Context(), obj)
			if err != nil {
				return err
			}
			return c.printResult(cmd, created)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Object id, generated by the server when empty")
	cmd.Flags().StringVar(&name, "name", "", "Object name")
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent object id")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma separated tags")
	cmd.Flags().StringArrayVar(&props, "set", nil, "Custom field as key=value (repeatable)")
	return cmd
}

func newUpdateCmd(c *container) *cobra.Command {
	var (
		name  string
		tags  []string
		props []string
	)
	cmd := &cobra.Command{
		Use:   "update <type> <id>",
		Short: "Update fields of an existing object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseProps(props)
			if err != nil {
				return err
			}
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			obj, err := client.Read(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if obj == nil {
				return fmt.Errorf("object %s/%s not found", args[0], args[1])
			}
			if name != "" {
				obj.Name = name
			}
			if cmd.Flags().Changed("tags") {
				obj.Tags = tags
			}
			if err := obj.SetFields(fields); err != nil {
				return err
			}
			updated, err := client.Update(cmd.Context(), obj)
			if err != nil {
				return err
			}
			return c.printResult(cmd, updated)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New object name")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Replace the tags")
	cmd.Flags().StringArrayVar(&props, "set", nil, "Custom field as key=value (repeatable)")
	return cmd
}

func newDeleteCmd(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>...",
		Short: "Delete one or more objects",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return client.Delete(cmd.Context(), paraclient.NewObject(args[1], args[0]))
			}
			return client.DeleteAll(cmd.Context(), args[1:])
		},
	}
}

func newListCmd(c *container) *cobra.Command {
	var pf pageFlags
	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List objects of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			pager := pf.pager()
			objects, err := client.List(cmd.Context(), args[0], pager)
			if err != nil {
				return err
			}
			c.logger.Debug("listed objects", zap.Int("returned", len(objects)), zap.Uint64("total", pager.Count))
			return c.printResult(cmd, objects)
		},
	}
	pf.register(cmd)
	return cmd
}
