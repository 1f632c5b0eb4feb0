// Package build runs one packhooks invocation end to end.
//
// A Run assembles the hook registry from providers and jobs, validates every
// job's configuration before any stage runs, composes the registered handlers
// around the host's stage transforms and installs the result on the host for
// the duration of one build or watch session. The host's original transforms
// are restored when the session ends, whatever its outcome.
package build
