package hooks

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// HooksConfig maps stages to phase registrations.
type HooksConfig map[Stage]TaskPhases

// ownerAdHoc identifies replace handlers contributed outside of any job.
const ownerAdHoc = "ad-hoc registration"

// Registry collects ad-hoc registrations and jobs for one build invocation.
type Registry struct {
	mu        sync.Mutex
	table     *JobTable
	hooks     map[Stage]Phases
	jobs      []JobMetadata
	selectors map[string]JobType
	replacers map[Stage]string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithJobTable makes RegisterJob resolve handles in t instead of the default table.
func WithJobTable(t *JobTable) RegistryOption {
	return func(r *Registry) {
		if t != nil {
			r.table = t
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		table:     defaultJobs,
		hooks:     make(map[Stage]Phases),
		selectors: make(map[string]JobType),
		replacers: make(map[Stage]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRegistryFromHooks creates a registry seeded with cfg.
func NewRegistryFromHooks(cfg HooksConfig, opts ...RegistryOption) (*Registry, error) {
	r := NewRegistry(opts...)
	if err := r.RegisterHooks(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Register appends handlers to the phases of one stage.
func (r *Registry) Register(stage Stage, tp TaskPhases) error {
	return r.RegisterHooks(HooksConfig{stage: tp})
}

// RegisterHooks registers every stage of cfg in pipeline order. Nothing is
// applied when any stage is rejected.
func (r *Registry) RegisterHooks(cfg HooksConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized, err := r.prepare(cfg, ownerAdHoc)
	if err != nil {
		return err
	}
	r.apply(normalized, ownerAdHoc)
	return nil
}

// RegisterJob records a declared job and merges its hooks.
func (r *Registry) RegisterJob(id JobType) error {
	meta, err := r.table.Lookup(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, dup := r.selectors[meta.Selector]; dup {
		return perrors.DuplicateSelector(meta.Selector).
			WithContext("job", string(id)).
			WithContext("registered_by", string(prev))
	}
	owner := fmt.Sprintf("job %q", meta.Selector)
	normalized, err := r.prepare(meta.Hooks, owner)
	if err != nil {
		return err
	}
	r.apply(normalized, owner)
	r.selectors[meta.Selector] = id
	r.jobs = append(r.jobs, meta)
	return nil
}

// prepare normalizes cfg and checks it against the current registrations.
func (r *Registry) prepare(cfg HooksConfig, owner string) (map[Stage]Phases, error) {
	for stage := range cfg {
		if !stage.Valid() {
			return nil, perrors.UnknownStage(string(stage))
		}
	}
	out := make(map[Stage]Phases, len(cfg))
	for _, stage := range stageOrder {
		tp, ok := cfg[stage]
		if !ok {
			continue
		}
		p := Normalize(tp)
		if p.Empty() {
			continue
		}
		if len(p.Replace) > 0 {
			if current, taken := r.replacers[stage]; taken && current != owner {
				return nil, perrors.ReplaceConflict(string(stage), current, owner)
			}
		}
		out[stage] = p
	}
	return out, nil
}

func (r *Registry) apply(normalized map[Stage]Phases, owner string) {
	for _, stage := range stageOrder {
		p, ok := normalized[stage]
		if !ok {
			continue
		}
		if len(p.Replace) > 0 {
			r.replacers[stage] = owner
		}
		r.hooks[stage] = r.hooks[stage].merge(p)
	}
}

// MergedHooks returns a copy of the merged per-stage phases.
func (r *Registry) MergedHooks() map[Stage]Phases {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Stage]Phases, len(r.hooks))
	for stage, p := range r.hooks {
		out[stage] = p.Normalize()
	}
	return out
}

// Hooks returns a copy of the merged phases of one stage.
func (r *Registry) Hooks(stage Stage) Phases {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hooks[stage].Normalize()
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []JobMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.jobs)
}

// Selectors returns the registered job selectors, sorted.
func (r *Registry) Selectors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.selectors))
}

// HasSelfManagedWatch reports whether any registered job drives its own rebuilds.
func (r *Registry) HasSelfManagedWatch() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.jobs, func(j JobMetadata) bool { return j.ManagesOwnWatch })
}
