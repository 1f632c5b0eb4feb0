// Package packager is the host pipeline: a six-stage library packager over a
// project directory described by a package.yaml manifest.
//
// Stages and what the built-in transforms do:
//
//	ConfigInit      resolve destination and bundle settings per entry point
//	SourceAnalysis  list every entry's source files with BLAKE3 digests
//	EntryPointInit  create the entry's destination directory
//	Compile         copy analysed sources into <dest>/lib
//	BundleEmit      archive the compiled output (tgz, tzst, txz or none)
//	PackageEmit     write the entry's package.json
//
// The per-stage transforms are swappable through Transforms/SetTransforms,
// which is how the hooks engine injects composed pipelines for one run.
package packager
