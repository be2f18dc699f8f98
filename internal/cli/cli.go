package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wsbump/pkg/buildinfo"
	"github.com/matzehuels/wsbump/pkg/cache"
	"github.com/matzehuels/wsbump/pkg/integrations/crates"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "wsbump"

	// defaultCacheTTL is how long registry lookups are cached.
	defaultCacheTTL = 10 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	workspace string  // --workspace
	remote    string  // --git-remote
	config    *Config // wsbump.toml, loaded before each command
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "wsbump bumps versions across a Cargo workspace",
		Long: `wsbump bumps package versions in a Cargo workspace and propagates the
change to every dependent, keeping a stable and a prerelease branch in step.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(c.workspace)
			if err != nil {
				return err
			}
			c.config = cfg
			if c.remote == "" {
				c.remote = cfg.Remote
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.workspace, "workspace", "w", ".", "workspace directory")
	root.PersistentFlags().StringVarP(&c.remote, "git-remote", "r", "", "git remote (default \"origin\")")

	root.AddCommand(c.bumpCommand())
	root.AddCommand(c.syncCommand())
	root.AddCommand(c.makeAtLeastStableCommand())
	root.AddCommand(c.makePrereleaseCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// cfg returns the loaded config, or defaults when a command runs without
// the root pre-run (as in tests).
func (c *CLI) cfg() *Config {
	if c.config == nil {
		return defaultConfig()
	}
	return c.config
}

// loadWorkspace reads the workspace on the current checkout.
func (c *CLI) loadWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	logger := loggerFromContext(ctx)
	return workspace.Load(c.workspace, workspace.Options{
		Logger: func(msg string, args ...any) { logger.Debugf(msg, args...) },
	})
}

// openCache opens the configured registry cache backend.
func (c *CLI) openCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.cfg()
	return cache.Open(ctx, cache.Config{
		Disabled: noCache,
		RedisURL: cfg.RedisURL,
	})
}

// newRegistry returns a crates.io client backed by backend.
func (c *CLI) newRegistry(backend cache.Cache) *crates.Client {
	return crates.NewClient(backend, c.cfg().CacheTTL.Duration)
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
