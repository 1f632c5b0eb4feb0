package build

import (
	"context"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

// Host is the pipeline the composed transforms are installed on.
type Host interface {
	Transforms() hooks.TransformSet
	SetTransforms(hooks.TransformSet)
	Build(ctx context.Context) error
	Watch(ctx context.Context) error
}

// WithComposedPipeline installs composed on host, calls run and restores the
// host's previous transforms afterwards. The restore also happens when run
// panics; the panic is then re-raised.
func WithComposedPipeline(ctx context.Context, host Host, composed hooks.TransformSet, run func(context.Context) error) error {
	snapshot := host.Transforms()
	host.SetTransforms(composed)
	defer host.SetTransforms(snapshot)
	return run(ctx)
}
