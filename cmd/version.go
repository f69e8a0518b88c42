package cmd

import (
	"fmt"
	"strings"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/erudika/para-client-go/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVersionCmd(c *container) *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:\t%s\n", safeValue(version.Version, "dev"))
			fmt.Fprintf(out, "Commit:\t%s\n", safeValue(version.Commit, "unknown"))
			fmt.Fprintf(out, "Built:\t%s\n", safeValue(version.BuildDate, "unknown"))
			if !server {
				return nil
			}
			client, err := c.paraClient()
			if err != nil {
				return err
			}
			serverVersion, err := client.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Server:\t%s\n", serverVersion)
			if serverVersion == paraclient.UnknownVersion {
				return nil
			}
			cmp, err := version.Compare(serverVersion)
			if err != nil {
				c.logger.Debug("server version is not semver", zap.String("version", serverVersion))
				return nil
			}
			if cmp > 0 {
				fmt.Fprintln(out, "Note:\tthe server is older than this client")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "Also query the server version")
	return cmd
}

func safeValue(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
