package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/release"
)

// syncOpts holds the command-line flags for the sync command.
type syncOpts struct {
	refresh bool // bypass the registry cache
	noCache bool // do not read or write the cache at all
	dryRun  bool // report without writing manifests
}

// syncCommand creates the sync command.
func (c *CLI) syncCommand() *cobra.Command {
	var opts syncOpts

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Set manifest versions to the versions published on crates.io",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context(), &opts, nil)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached registry responses")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the registry cache")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "report changes without writing")

	return cmd
}

// runSync syncs the workspace against reg, or crates.io when reg is nil.
func (c *CLI) runSync(ctx context.Context, opts *syncOpts, reg release.Registry) error {
	ws, err := c.loadWorkspace(ctx)
	if err != nil {
		return err
	}

	if reg == nil {
		backend, err := c.openCache(ctx, opts.noCache)
		if err != nil {
			return err
		}
		defer backend.Close()
		reg = c.newRegistry(backend)
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	spinner := newSyncSpinner(ctx, os.Stderr, ws.Len())
	spinner.Start()
	results, err := release.Sync(ctx, ws, reg, release.SyncOptions{Refresh: opts.refresh, DryRun: opts.dryRun})
	if err != nil {
		spinner.Stop()
		return err
	}
	tally := spinner.Finish(results)
	prog.done("Checked crates.io")

	for i, r := range results {
		counter := StyleDim.Render(fmt.Sprintf("[%d/%d]", i+1, len(results)))
		switch r.Outcome {
		case release.Updated:
			printSuccess("%s %s %s %s %s", counter, StyleHighlight.Render(r.Package), r.Previous, iconArrow, StyleValue.Render(r.Current.String()))
		case release.AlreadySynced:
			printInfo("%s %s already synced at %s", counter, r.Package, r.Previous)
		case release.PublishFalse:
			printInfo("%s %s has publish = false, skipping", counter, r.Package)
		case release.Failed:
			printError("%s %s: %s", counter, r.Package, errors.UserMessage(r.Err))
			logger.Debug("sync failed", "package", r.Package, "err", r.Err)
		}
	}

	if opts.dryRun {
		printInfo("Dry run: no files were changed")
	}
	if tally.failed > 0 {
		return errors.New(errors.ErrCodeNetwork, "%d of %d packages could not be synced", tally.failed, tally.total)
	}
	return nil
}
