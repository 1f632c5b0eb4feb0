package hooks

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

// GlobalContext is the read-only build configuration handed to providers and handlers.
type GlobalContext struct {
	Logger *slog.Logger
	// Root is the workspace root the configuration was loaded from.
	Root string
	// ProjectRoot is the directory holding the package manifest.
	ProjectRoot string
	SourceRoot  string
	BuildID     string
	Watch       bool
	Options     map[string]any
	// TaskArgs is a query string of free-form arguments, e.g. "bump=minor&dry=1".
	TaskArgs string

	argsOnce sync.Once
	args     url.Values
}

// Log returns the configured logger, falling back to slog.Default.
func (g *GlobalContext) Log() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// TaskArgValues returns the parsed task arguments. Malformed pairs are ignored.
func (g *GlobalContext) TaskArgValues() url.Values {
	if g == nil {
		return url.Values{}
	}
	g.argsOnce.Do(func() {
		v, err := url.ParseQuery(g.TaskArgs)
		if err != nil {
			g.Log().Warn("Ignoring malformed task arguments", slog.String("args", g.TaskArgs), logfields.Error(err))
		}
		if v == nil {
			v = url.Values{}
		}
		g.args = v
	})
	return g.args
}

// TaskContext is built fresh for every handler invocation.
type TaskContext struct {
	Graph *graph.Graph
	Stage Stage
	// Entry is the entry point in progress; nil for graph-scoped stages.
	Entry *graph.Node

	global  *GlobalContext
	jobArgs map[string]any
}

// NewTaskContext builds the context for one handler call over g.
func NewTaskContext(stage Stage, global *GlobalContext, g *graph.Graph, jobArgs map[string]any) *TaskContext {
	tc := &TaskContext{Graph: g, Stage: stage, global: global, jobArgs: jobArgs}
	if stage.Scope() == ScopeEntry && g != nil {
		tc.Entry = g.Find(graph.IsEntryPointInProgress)
	}
	return tc
}

// Global returns the build configuration. Handlers must not modify it.
func (tc *TaskContext) Global() *GlobalContext { return tc.global }

// Logger returns a logger annotated with the stage and, when set, the entry.
func (tc *TaskContext) Logger() *slog.Logger {
	l := tc.global.Log().With(logfields.Stage(string(tc.Stage)))
	if tc.Entry != nil {
		l = l.With(logfields.Entry(tc.Entry.ID))
	}
	return l
}

// JobArgs returns the validated configuration slice of a job, or an empty map.
func (tc *TaskContext) JobArgs(selector string) map[string]any {
	if m, ok := tc.jobArgs[selector].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// DecodeJobArgs decodes a job's configuration slice into out.
func (tc *TaskContext) DecodeJobArgs(selector string, out any) error {
	raw, err := json.Marshal(tc.JobArgs(selector))
	if err != nil {
		return fmt.Errorf("encode %s configuration: %w", selector, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s configuration: %w", selector, err)
	}
	return nil
}

// TaskArg returns the first value of a task argument.
func (tc *TaskContext) TaskArg(key string) string {
	return tc.global.TaskArgValues().Get(key)
}

// IsPrimaryEntry reports whether the current entry is the package's primary entry point.
func (tc *TaskContext) IsPrimaryEntry() bool {
	if tc.Entry == nil {
		return false
	}
	return graph.IsPrimary(tc.Entry)
}
