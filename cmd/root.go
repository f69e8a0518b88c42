package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "para",
	Short: "A command line client for the Para backend",
	Long: `para talks to a Para API server: it reads and writes objects, runs searches,
manages links, signs users in and bulk-imports objects from JSON or YAML files.

Credentials come from flags, PARA_* environment variables or a .para-client.yaml
file in the working or home directory.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// addPersistentFlags registers the flags that map onto config keys
func addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default .para-client.yaml)")
	flags.String("endpoint", "", "Para server URL")
	flags.String("access-key", "", "App access key, e.g. app:myapp")
	flags.String("secret-key", "", "App secret key")
	flags.String("api-path", "", "API path (default /v1/)")
	flags.String("token-dir", "", "Directory where the JWT is kept")
	flags.StringP("output", "o", "json", "Output format: json or yaml")
	flags.Uint64("retries", 2, "Retries for idempotent requests")
	flags.Duration("retry-delay", 500*time.Millisecond, "Initial retry backoff")
	flags.Duration("timeout", 30*time.Second, "HTTP request timeout")
	flags.Float64("rate-limit", 0, "Maximum requests per second, 0 for no limit")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}
