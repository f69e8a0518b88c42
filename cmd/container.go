package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/erudika/para-client-go/internal/config"
	"github.com/erudika/para-client-go/internal/orchestrator"
	"github.com/erudika/para-client-go/internal/repository"
	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// container holds all the dependencies for the application.
type container struct {
	cfg    *config.Config
	logger *zap.Logger
	fsRepo repository.FileSystemRepository
	client *paraclient.Client
}

// newContainer creates a container with the dependencies that need no config.
func newContainer() *container {
	return &container{
		fsRepo: repository.NewOSFileSystem(),
		logger: zap.NewNop(),
	}
}

// load reads the configuration once the flags of cmd are parsed.
func (c *container) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = newLogger(cfg.Verbose, cmd.ErrOrStderr())
	return nil
}

// paraClient builds the API client on first use.
func (c *container) paraClient() (*paraclient.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	if c.cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	if err := c.cfg.ValidateForAPI(); err != nil {
		return nil, err
	}
	store := repository.NewTokenRepository(c.fsRepo, c.cfg.TokenDir, c.cfg.AccessKey, c.logger)
	opts := []paraclient.Option{
		paraclient.WithEndpoint(c.cfg.Endpoint),
		paraclient.WithAPIPath(c.cfg.APIPath),
		paraclient.WithHTTPClient(paraclient.NewHTTPClient(c.cfg.Timeout)),
		paraclient.WithLogger(c.logger),
		paraclient.WithTokenStore(store),
		paraclient.WithRetry(c.cfg.RetryCount, c.cfg.RetryDelay),
	}
	if c.cfg.RateLimit > 0 {
		opts = append(opts, paraclient.WithRateLimit(rate.Limit(c.cfg.RateLimit), int(c.cfg.RateLimit)+1))
	}
	c.client = paraclient.New(c.cfg.AccessKey, c.cfg.SecretKey, opts...)
	return c.client, nil
}

// importOrchestrator wires the bulk import to the client and the state dir.
func (c *container) importOrchestrator(stateDir string) (*orchestrator.ImportOrchestrator, error) {
	client, err := c.paraClient()
	if err != nil {
		return nil, err
	}
	if stateDir == "" {
		stateDir = filepath.Join(c.cfg.TokenDir, "imports")
	}
	stateRepo := repository.NewJSONImportStateRepository(c.fsRepo, stateDir, c.logger)
	return orchestrator.NewImportOrchestrator(client, c.fsRepo, stateRepo, c.logger).
		WithAppID(client.AccessKey()), nil
}

// newLogger logs warnings to w, or everything at debug level when verbose.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// InitCommands initializes all commands with their dependencies
func InitCommands() error {
	rootCmd = newRootCmd(newContainer())
	return nil
}

// newRootCmd attaches flags and subcommands to a fresh root command
func newRootCmd(c *container) *cobra.Command {
	root := &cobra.Command{
		Use:          rootCmd.Use,
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}
	addPersistentFlags(root)
	root.AddCommand(
		newVersionCmd(c),
		newGetCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
		newListCmd(c),
		newSearchCmd(c),
		newCountCmd(c),
		newLinkCmd(c),
		newUnlinkCmd(c),
		newTypesCmd(c),
		newMeCmd(c),
		newNewIDCmd(c),
		newTimestampCmd(c),
		newSignInCmd(c),
		newSignOutCmd(c),
		NewImportCmd(c),
	)
	return root
}
