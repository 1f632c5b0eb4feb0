package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

// BuildService is the canonical interface for executing a hooked build.
// The CLI build, watch and schedule commands are thin wrappers over it.
type BuildService interface {
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// Mode selects a one-shot build or a watch session.
type Mode string

const (
	ModeBuild Mode = "build"
	ModeWatch Mode = "watch"
)

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	Mode Mode

	// Global is handed to providers and to every handler's task context.
	Global *hooks.GlobalContext

	// Providers run first, in order, against a fresh registry.
	Providers []hooks.Provider

	// Jobs are registered after the providers, in order.
	Jobs []hooks.JobType

	// Data is the task configuration object, keyed by job selector.
	Data map[string]any
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status  BuildStatus
	Mode    Mode
	BuildID string

	// Selectors lists the registered jobs in registration order.
	Selectors []string

	// HookedStages lists the stages that had handlers composed around them.
	HookedStages []hooks.Stage

	// SelfManagedWatch is set when a registered job drove rebuilds itself.
	SelfManagedWatch bool

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
