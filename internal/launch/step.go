package launch

import "context"

// Step is a single initialization action run once at launch. Steps report
// failure through their own channels (logging, panicking); the sequencer
// consumes no result.
type Step interface {
	Name() string
	Run(ctx context.Context, opts Options)
}

// StepFunc is the function shape of a step body.
type StepFunc func(ctx context.Context, opts Options)

type namedStep struct {
	name string
	fn   StepFunc
}

// NamedStep builds a Step from a name and a function.
func NamedStep(name string, fn StepFunc) Step {
	return &namedStep{name: name, fn: fn}
}

func (s *namedStep) Name() string { return s.name }

func (s *namedStep) Run(ctx context.Context, opts Options) { s.fn(ctx, opts) }
