package hooks

import (
	"io/fs"
	"maps"
	"slices"
	"strings"
	"sync"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
)

// JobType is the stable handle a job is declared under.
type JobType string

// SchemaRef locates a job's configuration schema. When FS is nil the path is
// resolved on disk by the validator's loader.
type SchemaRef struct {
	FS   fs.FS
	Path string
}

// IsZero reports whether no schema is referenced.
func (r SchemaRef) IsZero() bool { return r.Path == "" }

func (r SchemaRef) String() string {
	if r.FS != nil {
		return "embed:" + r.Path
	}
	return r.Path
}

// JobMetadata describes a reusable, independently configured bundle of hooks.
type JobMetadata struct {
	// Selector keys the job's slice of task configuration data.
	Selector string
	Schema   SchemaRef
	Hooks    HooksConfig
	// ManagesOwnWatch jobs trigger their own rebuilds; watch mode then runs a single build.
	ManagesOwnWatch bool
	Description     string
}

// JobTable maps job handles to their metadata.
type JobTable struct {
	mu   sync.RWMutex
	jobs map[JobType]JobMetadata
}

// NewJobTable creates an empty table.
func NewJobTable() *JobTable {
	return &JobTable{jobs: make(map[JobType]JobMetadata)}
}

// Declare attaches metadata to id.
func (t *JobTable) Declare(id JobType, meta JobMetadata) (JobType, error) {
	if strings.TrimSpace(string(id)) == "" {
		return "", perrors.ConfigInvalid("job", "job type must not be empty")
	}
	if strings.TrimSpace(meta.Selector) == "" {
		return "", perrors.ConfigInvalid("selector", "job "+string(id)+" declares no selector")
	}
	for stage := range meta.Hooks {
		if !stage.Valid() {
			return "", perrors.UnknownStage(string(stage)).WithContext("job", string(id))
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.jobs[id]; exists {
		return "", perrors.DuplicateJob(string(id))
	}
	meta.Hooks = maps.Clone(meta.Hooks)
	t.jobs[id] = meta
	return id, nil
}

// MustDeclare is Declare for package initialization; it panics on error.
func (t *JobTable) MustDeclare(id JobType, meta JobMetadata) JobType {
	id, err := t.Declare(id, meta)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup returns the metadata declared for id.
func (t *JobTable) Lookup(id JobType) (JobMetadata, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	meta, ok := t.jobs[id]
	if !ok {
		return JobMetadata{}, perrors.UnknownJob(string(id))
	}
	meta.Hooks = maps.Clone(meta.Hooks)
	return meta, nil
}

// Forget removes a declaration.
func (t *JobTable) Forget(id JobType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// Types returns the declared handles sorted by name.
func (t *JobTable) Types() []JobType {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.jobs))
}

var defaultJobs = NewJobTable()

// DefaultJobTable returns the process-wide job table.
func DefaultJobTable() *JobTable { return defaultJobs }

func DeclareJob(id JobType, meta JobMetadata) (JobType, error) { return defaultJobs.Declare(id, meta) }
func MustDeclareJob(id JobType, meta JobMetadata) JobType      { return defaultJobs.MustDeclare(id, meta) }
func LookupJob(id JobType) (JobMetadata, error)                { return defaultJobs.Lookup(id) }
func ForgetJob(id JobType)                                     { defaultJobs.Forget(id) }
