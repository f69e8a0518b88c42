package cmd

import (
	"github.com/erudika/para-client-go/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command
func NewImportCmd(c *container) *cobra.Command {
	var (
		batchSize      int
		dryRun         bool
		enableRollback bool
		rollback       bool
		sessionID      string
		stateDir       string
	)
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create objects from a JSON or YAML file in batches",
		Long: `Create every object in a JSON or YAML file, sending them to the server in batches.

The file holds a list of objects or a single object. Each batch is recorded
under the state directory so that the import can be undone later with
--rollback. With --enable-rollback (the default) a failed batch deletes the
objects created by the batches before it.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if rollback {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := c.importOrchestrator(stateDir)
			if err != nil {
				return err
			}
			cfg := orchestrator.ImportConfig{
				BatchSize:      batchSize,
				DryRun:         dryRun,
				EnableRollback: enableRollback,
				Rollback:       rollback,
				SessionID:      sessionID,
			}
			if len(args) > 0 {
				cfg.Source = args[0]
			}
			result, err := orch.Execute(cmd.Context(), cfg)
			if result != nil {
				if printErr := c.printResult(cmd, result); printErr != nil && err == nil {
					err = printErr
				}
			}
			return err
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", orchestrator.DefaultBatchSize, "Objects per batch request")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without creating anything")
	cmd.Flags().BoolVar(&enableRollback, "enable-rollback", true, "Delete created objects when a batch fails")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Delete the objects of a recorded import")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Import session to roll back (latest if not specified)")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Where import sessions are recorded (default <token-dir>/imports)")
	return cmd
}
