// Package validation checks each job's slice of task configuration against
// the job's schema before any stage runs.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	perrors "git.home.luguber.info/inful/packhooks/internal/errors"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/metrics"
)

const defaultConcurrency = 4

// Validator validates job configuration. Load and Check are injected so the
// validator does not depend on any particular file system or schema engine.
type Validator struct {
	Load        LoadFunc
	Check       CheckFunc
	Concurrency int
	Recorder    metrics.Recorder
	Logger      *slog.Logger
}

// New returns a validator reading on-disk schemas relative to root and
// checking them with JSONSchemaCheck.
func New(root string) *Validator {
	return &Validator{
		Load:        NewLoader(root),
		Check:       JSONSchemaCheck,
		Concurrency: defaultConcurrency,
		Recorder:    metrics.NoopRecorder{},
	}
}

type jobInput struct {
	job   hooks.JobMetadata
	slice any
}

// ValidateJobs validates every job's slice of data concurrently. It returns
// the validated slices keyed by selector, or the joined validation errors of
// every invalid job. data is never modified.
func (v *Validator) ValidateJobs(ctx context.Context, jobs []hooks.JobMetadata, data map[string]any) (map[string]any, error) {
	if v.Load == nil || v.Check == nil {
		return nil, perrors.InternalError("validator requires a schema loader and a check function", nil)
	}
	rec := v.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	log := v.Logger
	if log == nil {
		log = slog.Default()
	}

	// Defaulting mutates the instance, so validate an isolated JSON copy.
	copied, err := toJSONValue(data)
	if err != nil {
		return nil, perrors.ConfigInvalid("tasks.data", err.Error())
	}
	isolated, ok := copied.(map[string]any)
	if !ok {
		isolated = map[string]any{}
	}

	inputs := make([]jobInput, 0, len(jobs))
	for _, job := range jobs {
		slice, present := isolated[job.Selector]
		if !present || slice == nil {
			slice = map[string]any{}
		}
		inputs = append(inputs, jobInput{job: job, slice: slice})
	}

	concurrency := v.Concurrency
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	start := time.Now()
	results := runOrdered(inputs, concurrency, func(in jobInput) (any, error) {
		out, err := v.validateOne(ctx, in)
		rec.IncValidationResult(in.job.Selector, err == nil)
		return out, err
	})

	validated := make(map[string]any, len(inputs))
	var errs []error
	for i, res := range results {
		selector := inputs[i].job.Selector
		if res.Err != nil {
			log.Error("Job configuration invalid", logfields.Selector(selector), logfields.Error(res.Err))
			errs = append(errs, res.Err)
			continue
		}
		validated[selector] = res.Value
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	log.Debug("Job configuration validated",
		logfields.Count(len(inputs)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return validated, nil
}

func (v *Validator) validateOne(ctx context.Context, in jobInput) (any, error) {
	selector := in.job.Selector
	if in.job.Schema.IsZero() {
		return in.slice, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := v.Load(ctx, in.job.Schema)
	if err != nil {
		return nil, perrors.SchemaUnavailable(selector, in.job.Schema.String(), err)
	}

	out, err := v.Check(schema, in.slice)
	if err != nil {
		var ve *ViolationError
		switch {
		case errors.As(err, &ve):
			return nil, perrors.ValidationFailed(selector, ve.Violations).WithContext("schema", in.job.Schema.String())
		case perrors.Classified(err):
			return nil, err
		default:
			return nil, perrors.SchemaUnavailable(selector, in.job.Schema.String(), err)
		}
	}
	return out, nil
}
