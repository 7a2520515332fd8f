package launch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "arc-launchpad"

// Sequencer runs a fixed list of steps in declaration order and then hands
// the launch event to its base handler. It is itself a Handler, so a
// Sequencer can serve as the base of another.
//
// OnLaunch is meant to be called once per process. There is no guard against
// a second call.
type Sequencer struct {
	base     Handler
	steps    []Step
	clock    clockwork.Clock
	observer Observer

	lastReport *Report
	reportMu   sync.RWMutex
}

// SequencerOption customises a Sequencer.
type SequencerOption func(*Sequencer)

// WithClock sets the clock used to time steps.
func WithClock(c clockwork.Clock) SequencerOption {
	return func(s *Sequencer) { s.clock = c }
}

// WithObserver registers an observer for step and launch completion.
func WithObserver(o Observer) SequencerOption {
	return func(s *Sequencer) { s.observer = o }
}

// New builds a Sequencer delegating to base after running steps in order.
// base must not be nil.
func New(base Handler, steps []Step, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		base:  base,
		steps: append([]Step(nil), steps...),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnLaunch runs every step synchronously, then returns exactly what the base
// handler returns for the same options. Step panics are not recovered and ctx
// is never checked for cancellation.
func (s *Sequencer) OnLaunch(ctx context.Context, opts Options) bool {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "launch.sequence")
	defer span.End()

	report := &Report{
		ID:        uuid.New(),
		StartedAt: s.clock.Now(),
		Steps:     make([]StepRecord, 0, len(s.steps)),
	}
	span.SetAttributes(attribute.String("launch.id", report.ID.String()))

	slog.InfoContext(ctx, "launch started",
		"launch_id", report.ID.String(),
		"steps", len(s.steps),
		"options", opts.Keys(),
	)

	for i, step := range s.steps {
		report.Steps = append(report.Steps, s.runStep(ctx, i, step, opts))
	}

	result := s.base.OnLaunch(ctx, opts)

	elapsed := s.clock.Since(report.StartedAt)
	report.Result = result
	report.DurationMs = elapsed.Milliseconds()

	span.SetAttributes(attribute.Bool("launch.result", result))
	if result {
		span.SetStatus(codes.Ok, "")
		slog.InfoContext(ctx, "launch completed", "launch_id", report.ID.String(), "duration_ms", report.DurationMs)
	} else {
		// A refusal from the base handler is an ordinary outcome, not a fault.
		slog.WarnContext(ctx, "launch refused by base handler", "launch_id", report.ID.String())
	}

	if s.observer != nil {
		s.observer.LaunchDone(result, elapsed)
	}

	s.reportMu.Lock()
	s.lastReport = report
	s.reportMu.Unlock()

	return result
}

// LastReport returns a copy of the most recent launch report, or nil if no
// launch has completed.
func (s *Sequencer) LastReport() *Report {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	if s.lastReport == nil {
		return nil
	}
	cp := *s.lastReport
	cp.Steps = append([]StepRecord(nil), s.lastReport.Steps...)
	return &cp
}

// Launched returns true if the last launch completed with a true result.
func (s *Sequencer) Launched() bool {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	return s.lastReport != nil && s.lastReport.Result
}

// StepNames returns the step names in execution order.
func (s *Sequencer) StepNames() []string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name()
	}
	return names
}

func (s *Sequencer) runStep(ctx context.Context, order int, step Step, opts Options) StepRecord {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "launch.step")
	defer span.End()
	span.SetAttributes(
		attribute.String("step.name", step.Name()),
		attribute.Int("step.order", order),
	)

	start := s.clock.Now()
	step.Run(ctx, opts)
	elapsed := s.clock.Since(start)

	slog.InfoContext(ctx, "launch step done", "step", step.Name(), "order", order, "duration_ms", elapsed.Milliseconds())

	if s.observer != nil {
		s.observer.StepDone(step.Name(), elapsed)
	}

	return StepRecord{
		Name:       step.Name(),
		Order:      order,
		DurationMs: elapsed.Milliseconds(),
	}
}
