// Package nodelink renders workspace graphs and bump trees as node-link
// diagrams.
//
// # Usage
//
// Convert a graph or tree to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(ws.Graph(), nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
//	dot = nodelink.TreeToDOT(tree)
//
// The DOT source can also be written out and processed with external
// Graphviz tools.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is needed.
package nodelink
