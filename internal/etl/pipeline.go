// Package etl sequences the extract, transform and load steps of one named
// pipeline with uniform logging and error propagation.
package etl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"

	"github.com/google/uuid"
)

// Extractor produces the raw Dataset of a run.
type Extractor interface {
	Extract(ctx context.Context) (*dataset.Dataset, error)
}

// Transformer cleans a Dataset. It must not modify its input.
type Transformer interface {
	Transform(ctx context.Context, ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Loader persists a Dataset.
type Loader interface {
	Load(ctx context.Context, ds *dataset.Dataset) error
}

// Steps is the full set of operations a pipeline needs.
type Steps interface {
	Extractor
	Transformer
	Loader
}

type composed struct {
	Extractor
	Transformer
	Loader
}

// Compose builds Steps from three independent parts.
func Compose(e Extractor, t Transformer, l Loader) Steps {
	return composed{Extractor: e, Transformer: t, Loader: l}
}

// Step names a stage of a run.
type Step string

const (
	StepExtract   Step = "extract"
	StepTransform Step = "transform"
	StepLoad      Step = "load"
)

// State is where a pipeline is in its current or last run.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateTransforming State = "transforming"
	StateLoading      State = "loading"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// StepError is returned by Run when a step fails. Err keeps the step's error
// kind reachable through errors.Is and errors.As.
type StepError struct {
	Pipeline string
	Step     Step
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline %s failed during %s: %v", e.Pipeline, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Pipeline runs Steps for one named data flow and keeps the last transformed
// Dataset. Run must not be called concurrently with itself, but State, Data
// and RunID may be read from another goroutine while a run is in progress.
type Pipeline struct {
	name   string
	steps  Steps
	logger *logging.Logger

	mu    sync.Mutex
	state State
	data  *dataset.Dataset
	runID string
}

// New creates an idle Pipeline.
func New(name string, steps Steps, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{name: name, steps: steps, logger: logger, state: StateIdle}
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Data returns the Dataset of the last successful run, nil otherwise.
func (p *Pipeline) Data() *dataset.Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// RunID identifies the current or last run in the logs.
func (p *Pipeline) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run performs extract, transform and load once, in that order. Extract
// errors are returned with their kind untouched; transform errors are
// ErrTransformation and load errors ErrLoad, with the cause kept. Every
// failure is logged once, here.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.data = nil
	p.runID = uuid.NewString()
	runID := p.runID
	p.mu.Unlock()

	p.logger.Logf(logging.Info, "==== Starting ETL: %s (run %s) ====", p.name, runID)

	p.setState(StateExtracting)
	raw, err := p.steps.Extract(ctx)
	if err != nil {
		return p.fail(StepExtract, err)
	}
	if raw == nil {
		raw = dataset.New()
	}
	p.logger.Logf(logging.Info, "[%s] Extracted %d rows.", p.name, raw.Len())

	p.setState(StateTransforming)
	clean, err := p.steps.Transform(ctx, raw)
	if err != nil {
		return p.fail(StepTransform, wrapKind(etlerr.ErrTransformation, p.name, err))
	}
	if clean == nil {
		clean = dataset.New()
	}
	p.logger.Logf(logging.Info, "[%s] Transformation completed.", p.name)

	p.setState(StateLoading)
	if err := p.steps.Load(ctx, clean); err != nil {
		return p.fail(StepLoad, wrapKind(etlerr.ErrLoad, p.name, err))
	}
	p.logger.Logf(logging.Info, "[%s] Load completed successfully.", p.name)

	p.mu.Lock()
	p.data = clean
	p.state = StateDone
	p.mu.Unlock()
	p.logger.Successf("==== ETL %s finished successfully! ====", p.name)
	return nil
}

// wrapKind tags err with kind unless it already carries it.
func wrapKind(kind error, subject string, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return etlerr.New(kind, subject, err)
}

func (p *Pipeline) fail(step Step, err error) error {
	p.setState(StateFailed)
	p.logger.Logf(logging.Error, "ETL %s failed during %s: %v", p.name, step, err)
	return &StepError{Pipeline: p.name, Step: step, Err: err}
}
