// Package graph holds the build state shared by every stage of a packaging
// run: an ordered set of nodes (one package node plus one node per entry
// point) together with each node's state and free-form data bag.
//
// The graph is owned by the host pipeline. Hook handlers receive it through
// their task context, may query it with predicates, may flip a node's State
// (for example to StateDone so later entry-scoped stages skip it), and may
// return a replacement graph.
//
// A Graph is not safe for concurrent use. The pipeline drives it from a
// single goroutine and processes entry points strictly one at a time.
package graph
