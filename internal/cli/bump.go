package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wsbump/pkg/bump"
	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/release"
	"github.com/matzehuels/wsbump/pkg/render/nodelink"
)

// Plan output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// bumpOpts holds the command-line flags shared by the bump subcommands.
type bumpOpts struct {
	instructions []string // "<package> <magnitude>", repeatable
	otherBranch  string   // prerelease branch (stable) or stable branch (prerelease)
	dryRun       bool     // print the plan without writing
	format       string   // plan output format
	output       string   // plan output file (stdout if empty)
	noLockfile   bool     // skip cargo update
	fetch        bool     // fetch and fast-forward both branches first
	yes          bool     // apply without asking
}

// bumpCommand creates the bump command with one subcommand per channel.
func (c *CLI) bumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump",
		Short: "Bump packages and propagate the change to their dependents",
		Long: `Bump packages on one release channel and propagate the change to every
dependent. The other channel's branch is checked out into a temporary
worktree so both channels stay consistent.`,
	}

	cmd.AddCommand(c.bumpChannelCommand(bump.Stable))
	cmd.AddCommand(c.bumpChannelCommand(bump.Prerelease))

	return cmd
}

func (c *CLI) bumpChannelCommand(ch bump.Channel) *cobra.Command {
	opts := bumpOpts{format: formatText}

	cmd := &cobra.Command{
		Use:  ch.String(),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return c.runBump(cmd.Context(), cmd.OutOrStdout(), ch, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.instructions, "bump-instruction", "b", nil, `package and magnitude, e.g. "core minor" (repeatable)`)
	flags.BoolVarP(&opts.dryRun, "dry-run", "d", false, "print the plan without writing anything")
	flags.StringVarP(&opts.format, "format", "f", opts.format, "plan format: text, json, dot, svg")
	flags.StringVarP(&opts.output, "output", "o", "", "write the plan to a file instead of stdout")
	flags.BoolVar(&opts.noLockfile, "no-lockfile", false, "do not regenerate Cargo.lock")
	flags.BoolVar(&opts.fetch, "fetch", false, "fetch and fast-forward both branches before planning")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "apply without asking for confirmation")
	_ = cmd.MarkFlagRequired("bump-instruction")

	if ch == bump.Stable {
		cmd.Short = "Bump packages on the stable branch"
		flags.StringVarP(&opts.otherBranch, "prerelease-branch", "p", "", "prerelease branch to keep ahead of stable")
	} else {
		cmd.Short = "Bump packages on the prerelease branch"
		flags.StringVarP(&opts.otherBranch, "stable-branch", "s", "", "stable branch the prerelease versions are anchored to")
	}

	return cmd
}

// validFormats is the set of supported plan formats.
var validFormats = map[string]bool{formatText: true, formatJSON: true, formatDOT: true, formatSVG: true}

func validateFormat(f string) error {
	if !validFormats[f] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be 'text', 'json', 'dot', or 'svg')", f)
	}
	return nil
}

// releaseOptions merges flags with wsbump.toml defaults.
func (c *CLI) releaseOptions(ctx context.Context, ch bump.Channel, opts *bumpOpts) release.Options {
	cfg := c.cfg()
	logger := loggerFromContext(ctx)

	other := opts.otherBranch
	if other == "" {
		other = cfg.PrereleaseBranch
		if ch == bump.Prerelease {
			other = cfg.StableBranch
		}
	}
	return release.Options{
		Root:         c.workspace,
		Channel:      ch,
		Instructions: opts.instructions,
		OtherBranch:  other,
		Remote:       c.remote,
		Fetch:        opts.fetch,
		NoLockfile:   opts.noLockfile || !cfg.Lockfile,
		Logger:       func(msg string, kv ...any) { logger.Info(msg, kv...) },
	}
}

func (c *CLI) runBump(ctx context.Context, w io.Writer, ch bump.Channel, opts *bumpOpts) error {
	ropts := c.releaseOptions(ctx, ch, opts)
	runner := release.NewRunner(ropts.Root)
	logger := loggerFromContext(ctx)

	prog := newProgress(logger)
	plan, err := runner.Plan(ctx, ropts)
	if err != nil {
		return err
	}
	defer func() {
		if err := plan.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to remove temporary checkout", "err", err)
		}
	}()
	prog.done(fmt.Sprintf("Planned %s bump %s", ch, plan.ID))
	for _, text := range plan.Skipped {
		printWarning("Skipped %q: already ahead of stable", text)
	}

	data, err := renderPlan(ctx, plan.Tree, opts.format)
	if err != nil {
		return err
	}
	if err := writeOutput(w, opts.output, data); err != nil {
		return err
	}
	if opts.output != "" {
		printFile(opts.output)
	}

	if opts.dryRun {
		printInfo("Dry run: no files were changed")
		return nil
	}

	if !opts.yes && !plan.Tree.Empty() && interactive() {
		ok, err := confirmPlan(bump.Summarize(plan.Tree))
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Cancelled: no files were changed")
			return nil
		}
	}

	prog = newProgress(logger)
	res, err := runner.Apply(ctx, plan, ropts)
	if err != nil {
		return err
	}
	prog.done("Applied plan")
	printResult(res, c.remote)
	return nil
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// renderPlan renders the tree in the requested format.
func renderPlan(ctx context.Context, t *bump.Tree, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(bump.Summarize(t), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case formatDOT:
		return []byte(nodelink.TreeToDOT(t)), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, nodelink.TreeToDOT(t))
	default:
		return []byte(bump.Render(t, bump.RenderOptions{Color: true})), nil
	}
}

func printResult(res *release.Result, remote string) {
	if res.Changed == 0 {
		printInfo("Nothing to bump")
		return
	}
	printSuccess("Updated %s packages", StyleNumber.Render(fmt.Sprint(res.Changed)))
	if res.StableCommit != "" {
		printKeyValue("stable", res.StableCommit)
	}
	if res.PrereleaseCommit != "" {
		printKeyValue("prerelease", res.PrereleaseCommit)
	}
	if res.PrereleaseBranch != "" {
		printKeyValue("branch", res.PrereleaseBranch)
		printNewline()
		printNextStep("Push the propagation for review", fmt.Sprintf("git push %s %s", remote, res.PrereleaseBranch))
	}
}
