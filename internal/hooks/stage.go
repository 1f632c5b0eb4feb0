package hooks

import (
	"slices"
	"strings"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// Stage names one of the fixed pipeline steps.
type Stage string

const (
	ConfigInit     Stage = "ConfigInit"
	SourceAnalysis Stage = "SourceAnalysis"
	EntryPointInit Stage = "EntryPointInit"
	Compile        Stage = "Compile"
	BundleEmit     Stage = "BundleEmit"
	PackageEmit    Stage = "PackageEmit"
)

// Scope tells how often a stage runs per build.
type Scope string

const (
	// ScopeGraph stages run once per build over the whole graph.
	ScopeGraph Scope = "graph"
	// ScopeEntry stages run once per entry point, one entry at a time.
	ScopeEntry Scope = "entry"
)

var stageOrder = []Stage{ConfigInit, SourceAnalysis, EntryPointInit, Compile, BundleEmit, PackageEmit}

// Names used by earlier hook configurations.
var stageAliases = map[string]Stage{
	"inittsconfig":   ConfigInit,
	"analysesources": SourceAnalysis,
	"entrypoint":     EntryPointInit,
	"compilengc":     Compile,
	"writebundles":   BundleEmit,
	"writepackage":   PackageEmit,
}

// Stages returns all stages in pipeline order.
func Stages() []Stage { return slices.Clone(stageOrder) }

// GraphStages returns the graph-scoped stages in pipeline order.
func GraphStages() []Stage { return stagesIn(ScopeGraph) }

// EntryStages returns the entry-scoped stages in pipeline order.
func EntryStages() []Stage { return stagesIn(ScopeEntry) }

func stagesIn(scope Scope) []Stage {
	var out []Stage
	for _, s := range stageOrder {
		if s.Scope() == scope {
			out = append(out, s)
		}
	}
	return out
}

// Scope returns the execution scope of the stage.
func (s Stage) Scope() Scope {
	switch s {
	case ConfigInit, SourceAnalysis:
		return ScopeGraph
	default:
		return ScopeEntry
	}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// Index returns the position of the stage in the pipeline, or -1.
func (s Stage) Index() int { return slices.Index(stageOrder, s) }

func (s Stage) String() string { return string(s) }

// ParseStage resolves a stage name case-insensitively, accepting legacy aliases.
func ParseStage(name string) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, s := range stageOrder {
		if strings.ToLower(string(s)) == key {
			return s, nil
		}
	}
	if s, ok := stageAliases[key]; ok {
		return s, nil
	}
	return "", perrors.UnknownStage(name)
}
