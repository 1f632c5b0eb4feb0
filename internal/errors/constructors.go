package errors

import (
	"fmt"
	"strings"
)

// Convenience functions for common error patterns

// Configuration errors

func ConfigNotFound(path string) *PackError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *PackError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ConfigInvalid(field, reason string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("invalid configuration: %s", reason)).
		WithContext("field", field)
}

// UnknownJob is returned when a job handle was never declared.
func UnknownJob(id string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("unknown job %q: no job metadata declared", id)).
		WithContext("job", id)
}

// DuplicateJob is returned when a job handle is declared twice.
func DuplicateJob(id string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("job %q already declared", id)).
		WithContext("job", id)
}

// DuplicateSelector is returned when two registered jobs share a selector.
func DuplicateSelector(selector string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("job selector %q already registered", selector)).
		WithContext("selector", selector)
}

// ReplaceConflict is returned when two sources both replace the same stage.
func ReplaceConflict(stage, owner, contender string) *PackError {
	return New(CategoryConfig, SeverityFatal,
		fmt.Sprintf("stage %s is already replaced by %s; %s cannot replace it too", stage, owner, contender)).
		WithContext("stage", stage).
		WithContext("owner", owner).
		WithContext("contender", contender)
}

func UnknownStage(name string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("unknown stage %q", name)).
		WithContext("stage", name)
}

func UnknownProvider(name string) *PackError {
	return New(CategoryConfig, SeverityFatal, fmt.Sprintf("unknown hook provider %q", name)).
		WithContext("provider", name)
}

// Validation errors

// ValidationFailed reports the schema violations of one job's configuration slice.
func ValidationFailed(selector string, violations []string) *PackError {
	msg := fmt.Sprintf("configuration for job %q is invalid", selector)
	if len(violations) > 0 {
		msg += ": " + strings.Join(violations, "; ")
	}
	return New(CategoryValidation, SeverityFatal, msg).
		WithContext("selector", selector).
		WithContext("violations", violations)
}

// SchemaUnavailable is returned when a job's schema cannot be loaded or compiled.
func SchemaUnavailable(selector, ref string, cause error) *PackError {
	return Wrap(cause, CategoryValidation, SeverityFatal, fmt.Sprintf("schema for job %q unavailable", selector)).
		WithContext("selector", selector).
		WithContext("schema", ref)
}

// Pipeline errors

// HandlerFailed wraps the failure of a registered handler.
func HandlerFailed(stage, phase string, index int, cause error) *PackError {
	return Wrap(cause, CategoryHandler, SeverityFatal, fmt.Sprintf("%s handler #%d of stage %s failed", phase, index, stage)).
		WithContext("stage", stage).
		WithContext("phase", phase).
		WithContext("index", index)
}

// HostFailed wraps the failure of a host stage transform.
func HostFailed(stage string, cause error) *PackError {
	return Wrap(cause, CategoryHost, SeverityFatal, fmt.Sprintf("stage %s failed", stage)).
		WithContext("stage", stage)
}

func FileSystemError(operation string, cause error) *PackError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *PackError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
