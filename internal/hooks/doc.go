// Package hooks is the hook-injection and pipeline-composition engine.
//
// Extensions contribute Handlers that run before, instead of, or after any of
// the six fixed pipeline stages. Contributions arrive either as ad-hoc
// registrations (a HooksConfig or a RegistryFunc) or grouped into declared
// Jobs. The Registry merges them into one ordered Phases list per stage, and
// Compose splices those phases around the host's original stage transform:
//
//	before... -> (replace... | original) -> after...
//
// Every step receives the graph produced by the previous step. A handler that
// returns a nil graph leaves the current graph in place.
package hooks
