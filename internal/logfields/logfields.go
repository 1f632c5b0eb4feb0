package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyPhase      = "phase"
	KeyScope      = "scope"
	KeyHandler    = "handler"
	KeySelector   = "selector"
	KeyJob        = "job"
	KeyProvider   = "provider"
	KeyEntry      = "entry"
	KeyPackage    = "package"
	KeyVersion    = "version"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyMode       = "mode"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Scope(s string) slog.Attr        { return slog.String(KeyScope, s) }
func Handler(i int) slog.Attr         { return slog.Int(KeyHandler, i) }
func Selector(s string) slog.Attr     { return slog.String(KeySelector, s) }
func Job(id string) slog.Attr         { return slog.String(KeyJob, id) }
func Provider(n string) slog.Attr     { return slog.String(KeyProvider, n) }
func Entry(id string) slog.Attr       { return slog.String(KeyEntry, id) }
func Package(n string) slog.Attr      { return slog.String(KeyPackage, n) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
