package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wsbump/pkg/release"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

type rewriteFunc func(ws *workspace.Workspace, dryRun bool) ([]release.VersionChange, error)

// makeAtLeastStableCommand creates the make-at-least-stable command.
func (c *CLI) makeAtLeastStableCommand() *cobra.Command {
	return c.rewriteCommand(
		"make-at-least-stable",
		"Strip prerelease labels and lift 0.0.x versions to 0.1.0",
		release.MakeAtLeastStable,
	)
}

// makePrereleaseCommand creates the make-prerelease command.
func (c *CLI) makePrereleaseCommand() *cobra.Command {
	return c.rewriteCommand(
		"make-prerelease",
		"Append the first prerelease label (-alpha.1) to every package",
		release.MakePrerelease,
	)
}

func (c *CLI) rewriteCommand(use, short string, fn rewriteFunc) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRewrite(cmd.Context(), fn, dryRun)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "report changes without writing")

	return cmd
}

func (c *CLI) runRewrite(ctx context.Context, fn rewriteFunc, dryRun bool) error {
	ws, err := c.loadWorkspace(ctx)
	if err != nil {
		return err
	}
	changes, err := fn(ws, dryRun)
	for _, ch := range changes {
		printSuccess("%s %s %s %s", StyleHighlight.Render(ch.Package), ch.From, iconArrow, StyleValue.Render(ch.To.String()))
	}
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		printInfo("All %d packages already up to date", ws.Len())
	}
	if dryRun {
		printInfo("Dry run: no files were changed")
	}
	return nil
}
