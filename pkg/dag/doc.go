// Package dag provides the directed graph that models dependencies between
// the packages of a Cargo workspace.
//
// # Overview
//
// Each node is a workspace package and each edge points from a package to a
// workspace package it depends on. Bump propagation walks the graph in the
// opposite direction: when a package changes, its dependents ([DAG.Parents])
// must be bumped too.
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "cli"})
//	g.AddNode(dag.Node{ID: "core"})
//	g.AddEdge(dag.Edge{From: "cli", To: "core"})
//
//	g.Parents("core") // [cli]
//
// Query methods return IDs in sorted order so that everything derived from
// the graph (bump trees, rendered output, commit messages) is deterministic.
//
// # Cycles
//
// Cargo rejects dependency cycles between normal dependencies, but a
// hand-edited or partially migrated workspace can still contain one. Use
// [DAG.Validate] to reject such graphs or [FindCycle] to name the cycle.
//
// # Release Layers
//
// [AssignLayers] groups packages into layers such that every package's
// workspace dependencies live in earlier layers. Publishing layer by layer is
// always safe.
package dag
