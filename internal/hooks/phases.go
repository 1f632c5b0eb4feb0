package hooks

import (
	"context"

	"git.home.luguber.info/inful/packhooks/internal/graph"
)

// Handler is a unit of behavior attached to a stage phase. A nil graph result
// means no change; a non-nil result replaces the graph for the following steps.
type Handler func(ctx context.Context, tc *TaskContext) (*graph.Graph, error)

// Noop does nothing. Registering it as a replace handler suppresses a stage.
var Noop Handler = func(context.Context, *TaskContext) (*graph.Graph, error) { return nil, nil }

// HandlerOrList is either a single Handler or a Handlers list.
type HandlerOrList interface {
	handlers() []Handler
}

func (h Handler) handlers() []Handler {
	if h == nil {
		return nil
	}
	return []Handler{h}
}

// Handlers is an ordered list of handlers.
type Handlers []Handler

func (hs Handlers) handlers() []Handler { return compact(hs) }

// Phase is one of the three phase kinds around a stage.
type Phase string

const (
	PhaseBefore  Phase = "before"
	PhaseReplace Phase = "replace"
	PhaseAfter   Phase = "after"
)

// TaskPhases is the registration shape: each phase kind may hold a single
// handler, a list, or nothing.
type TaskPhases struct {
	Before  HandlerOrList
	Replace HandlerOrList
	After   HandlerOrList
}

// Phases is the normalized shape used by the composer.
type Phases struct {
	Before  []Handler
	Replace []Handler
	After   []Handler
}

// Normalize turns a registration into ordered handler lists.
func Normalize(tp TaskPhases) Phases {
	return Phases{
		Before:  listOf(tp.Before),
		Replace: listOf(tp.Replace),
		After:   listOf(tp.After),
	}
}

// Normalize returns a copy with nil handlers dropped. It is idempotent.
func (p Phases) Normalize() Phases {
	return Phases{
		Before:  compact(p.Before),
		Replace: compact(p.Replace),
		After:   compact(p.After),
	}
}

// Empty reports whether no handler is registered in any phase kind.
func (p Phases) Empty() bool {
	return len(p.Before) == 0 && len(p.Replace) == 0 && len(p.After) == 0
}

// Len returns the total number of handlers.
func (p Phases) Len() int { return len(p.Before) + len(p.Replace) + len(p.After) }

// Of returns the handlers of one phase kind.
func (p Phases) Of(phase Phase) []Handler {
	switch phase {
	case PhaseBefore:
		return p.Before
	case PhaseReplace:
		return p.Replace
	case PhaseAfter:
		return p.After
	}
	return nil
}

func (p Phases) merge(o Phases) Phases {
	return Phases{
		Before:  append(compact(p.Before), o.Before...),
		Replace: append(compact(p.Replace), o.Replace...),
		After:   append(compact(p.After), o.After...),
	}
}

// TaskPhases converts back to the registration shape.
func (p Phases) TaskPhases() TaskPhases {
	return TaskPhases{Before: Handlers(p.Before), Replace: Handlers(p.Replace), After: Handlers(p.After)}
}

func listOf(h HandlerOrList) []Handler {
	if h == nil {
		return []Handler{}
	}
	return h.handlers()
}

func compact(hs []Handler) []Handler {
	out := make([]Handler, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
