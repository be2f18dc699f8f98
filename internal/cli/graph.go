package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wsbump/pkg/dag"
	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/render/nodelink"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	format   string // text, dot or svg
	output   string // output file (stdout if empty)
	detailed bool   // include layer and version in node labels
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the workspace dependency graph in release order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), cmd.OutOrStdout(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: text, dot, svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show release layer and version (dot, svg)")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, w io.Writer, opts *graphOpts) error {
	ws, err := c.loadWorkspace(ctx)
	if err != nil {
		return err
	}
	g := ws.Graph()
	layers := dag.AssignLayers(g)

	var data []byte
	switch opts.format {
	case formatText:
		data = []byte(formatLayers(layers))
	case formatDOT:
		data = []byte(nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed}))
	case formatSVG:
		if data, err = nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed})); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be 'text', 'dot', or 'svg')", opts.format)
	}

	if err := writeOutput(w, opts.output, data); err != nil {
		return err
	}
	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}

// formatLayers lists the release layers, leaf packages first.
func formatLayers(layers [][]string) string {
	var b strings.Builder
	for i, layer := range layers {
		fmt.Fprintf(&b, "%d: %s\n", i, strings.Join(layer, ", "))
	}
	return b.String()
}
