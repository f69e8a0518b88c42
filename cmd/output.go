package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/erudika/para-client-go/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// printResult writes v in the configured output format.
func (c *container) printResult(cmd *cobra.Command, v any) error {
	format := config.OutputJSON
	if c.cfg != nil {
		format = c.cfg.Output
	}
	return writeOutput(cmd.OutOrStdout(), format, v)
}

func writeOutput(w io.Writer, format string, v any) error {
	// Go through JSON so that Object.MarshalJSON shapes YAML output too
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if format != config.OutputYAML {
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		out.WriteByte('\n')
		_, err = out.WriteTo(w)
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(doc)); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// plainNumbers turns json.Number values into int64 or float64 so that YAML
// prints them unquoted and without exponents.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// printLine writes a plain value such as an id or a count.
func printLine(cmd *cobra.Command, v any) {
	fmt.Fprintln(cmd.OutOrStdout(), v)
}
