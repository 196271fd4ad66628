// Package suiteexec drives one suite run: it orders steps via the DAG
// resolver, executes each in turn, materializes dependencyOnly steps on
// demand, enforces the within-run cache TTL, coordinates the
// interactive manual-input protocol, and aggregates the per-step
// results into a SuiteExecutionResult. It is the conductor that wires
// dag, placeholder, stepexec, verify, and runregistry together.
package suiteexec

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/santhoshkumr96/orchestapi/internal/dag"
	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/events"
	"github.com/santhoshkumr96/orchestapi/internal/runregistry"
	"github.com/santhoshkumr96/orchestapi/internal/stepexec"
	"github.com/santhoshkumr96/orchestapi/internal/verify"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Engine runs suites. One Engine is reused across runs; it is safe for
// concurrent Run calls since all mutable run state lives in a
// per-invocation execState.
type Engine struct {
	client   *resty.Client
	verifier *verify.Coordinator
	registry *runregistry.Registry
}

// New builds an Engine. registry tracks in-flight runs for cancellation
// and manual-input rendezvous.
func New(client *resty.Client, verifier *verify.Coordinator, registry *runregistry.Registry) *Engine {
	return &Engine{client: client, verifier: verifier, registry: registry}
}

// RunOptions configures one suite execution.
type RunOptions struct {
	RunID          string
	Trigger        runrec.TriggerType
	ScheduleID     string
	Sink           events.Sink
	NonInteractive bool
	// TargetStepID, when set, restricts the run to the minimal prefix
	// needed to execute that one step: the target plus its
	// reflexive-transitive predecessors, topologically ordered.
	TargetStepID string
	// ManualInputs seeds the run's manual-input namespace (e.g. from a
	// schedule's last-known-good answers); may be nil.
	ManualInputs map[string]string
}

type execState struct {
	results      map[string]runrec.StepExecutionResult
	extracted    map[string]string
	manualInputs map[string]string
	refreshed    []string
	refreshedSet map[string]bool
	warnings     map[string][]string
}

func (st *execState) markRefreshed(stepID string) {
	if st.refreshedSet[stepID] {
		return
	}
	st.refreshedSet[stepID] = true
	st.refreshed = append(st.refreshed, stepID)
}

// Run executes def against env and returns the aggregate result. A
// cancelled run (via the registry) stops the remaining execution order
// and returns status FAILURE.
func (e *Engine) Run(ctx context.Context, def *suite.TestSuite, env *suite.Environment, opts RunOptions) (*runrec.SuiteExecutionResult, error) {
	sink := opts.Sink
	if sink == nil {
		sink = events.Nop
	}

	if err := def.Validate(); err != nil {
		sink.Publish(events.Event{Kind: events.KindRunError, RunID: opts.RunID, Timestamp: time.Now(), Message: err.Error()})
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.registry.Register(opts.RunID, sink, cancel)
	defer e.registry.Unregister(opts.RunID)

	start := time.Now()
	sink.Publish(events.Event{Kind: events.KindRunStarted, RunID: opts.RunID, Timestamp: start})

	order, err := executionOrder(def, opts.TargetStepID)
	if err != nil {
		sink.Publish(events.Event{Kind: events.KindRunError, RunID: opts.RunID, Timestamp: time.Now(), Message: err.Error()})
		return nil, err
	}

	st := &execState{
		results:      make(map[string]runrec.StepExecutionResult),
		extracted:    make(map[string]string),
		manualInputs: cloneMap(opts.ManualInputs),
		refreshedSet: make(map[string]bool),
		warnings:     make(map[string][]string),
	}

	result := &runrec.SuiteExecutionResult{
		RunID:     opts.RunID,
		SuiteID:   def.ID,
		StartedAt: start,
	}
	if env != nil {
		result.EnvironmentID = env.ID
	}

	rc := runContext{runID: opts.RunID, registry: e.registry, sink: sink, nonInteractive: opts.NonInteractive}

	var aborted bool
	for _, stepID := range order {
		step, ok := def.Step(stepID)
		if !ok {
			continue
		}

		if runCtx.Err() != nil {
			result.Steps = append(result.Steps, abortStep(*step, apperrors.NewCancelledError(opts.RunID, "cancelled by caller")))
			aborted = true
			break
		}

		if err := e.materializeDependencies(runCtx, rc, def, env, *step, st); err != nil {
			result.Steps = append(result.Steps, abortStep(*step, err))
			aborted = true
			break
		}

		stepResult, err := e.executeStep(runCtx, rc, def, env, *step, st, false)
		if err != nil {
			result.Steps = append(result.Steps, stepResult)
			aborted = true
			break
		}
		// A cacheable step's recorded result is flagged as the cached
		// instance dependents will reuse; a later TTL refresh replaces it
		// with a fresh one flagged false.
		if step.Cacheable && stepResult.Status.Succeeded() {
			stepResult.FromCache = true
			st.results[step.ID] = stepResult
		}
		result.Steps = append(result.Steps, stepResult)
	}

	// A dependency refreshed mid-run replaces its earlier result, so the
	// reported list always carries the newest instance of each step.
	if !aborted {
		result.Steps = result.Steps[:0]
		for _, stepID := range order {
			if r, ok := st.results[stepID]; ok {
				result.Steps = append(result.Steps, r)
			}
		}
	}

	completed := time.Now()
	result.CompletedAt = completed
	result.TotalDuration = completed.Sub(start)
	result.RefreshedStepIDs = st.refreshed

	if aborted {
		result.Status = runrec.RunFailure
	} else {
		result.Status = runrec.ComputeStatus(result.Steps)
	}

	sink.Publish(events.Event{Kind: events.KindRunComplete, RunID: opts.RunID, Timestamp: completed, Result: result})

	return result, nil
}

// executionOrder computes the top-level order: the full sort, or the
// subgraph prefix when a target step is requested. dependencyOnly steps
// are filtered out either way; they are materialized on demand.
func executionOrder(def *suite.TestSuite, targetStepID string) ([]string, error) {
	graph, err := dag.Build(def.Steps)
	if err != nil {
		return nil, err
	}
	var order []string
	if targetStepID != "" {
		order, err = graph.SubgraphSort(targetStepID)
	} else {
		order, err = graph.FullSort()
	}
	if err != nil {
		return nil, err
	}
	return dag.FilterDependencyOnly(order, def.Steps), nil
}

// materializeDependencies ensures every dependency of step has a
// fresh-enough result before step itself runs.
func (e *Engine) materializeDependencies(ctx context.Context, rc runContext, def *suite.TestSuite, env *suite.Environment, step suite.TestStep, st *execState) error {
	for _, dep := range step.Dependencies {
		if _, err := e.ensureExecuted(ctx, rc, def, env, dep, st); err != nil {
			return err
		}
	}
	return nil
}

// ensureExecuted returns a fresh-enough StepExecutionResult for the step
// dep points at, executing it (and recursively its own dependencies)
// first if needed.
//
// The reuse decision is per dependency edge: useCache=false always
// forces a fresh call; useCache=true reuses the cached result unless the
// producer is cacheable with a TTL that has since elapsed, in which case
// the producer is re-executed and the newer result replaces the cached
// one for everything downstream. A refresh re-prompts for the step's
// manual inputs only when the edge has reuseManualInput=false.
func (e *Engine) ensureExecuted(ctx context.Context, rc runContext, def *suite.TestSuite, env *suite.Environment, dep suite.Dependency, st *execState) (runrec.StepExecutionResult, error) {
	step, ok := def.Step(dep.DependsOnStepID)
	if !ok {
		return runrec.StepExecutionResult{}, apperrors.NewNotFoundError("step", dep.DependsOnStepID, nil)
	}

	existing, executed := st.results[step.ID]
	if executed && dep.UseCache {
		ttl := time.Duration(step.CacheTTLSec) * time.Second
		expired := step.Cacheable && ttl > 0 && time.Since(existing.Timestamp) >= ttl
		if !expired {
			cp := existing
			cp.FromCache = true
			return cp, nil
		}
		st.markRefreshed(step.ID)
	}

	// Re-execution first refreshes any of the step's own dependencies
	// that have gone stale in the meantime.
	if err := e.materializeDependencies(ctx, rc, def, env, *step, st); err != nil {
		return runrec.StepExecutionResult{}, err
	}

	reprompt := executed && !dep.ReuseManualInput
	return e.executeStep(ctx, rc, def, env, *step, st, reprompt)
}

// executeStep resolves any manual-input prompts the step's text
// requires, then runs its full stepexec pipeline. reprompt forces a
// fresh prompt for inputs that already have a cached answer (shown to
// the caller as cachedValue so it can offer a reuse toggle).
func (e *Engine) executeStep(ctx context.Context, rc runContext, def *suite.TestSuite, env *suite.Environment, step suite.TestStep, st *execState, reprompt bool) (runrec.StepExecutionResult, error) {
	if err := resolveManualInputs(ctx, rc, step, st.manualInputs, reprompt); err != nil {
		if _, cancelled := err.(*apperrors.CancelledError); cancelled {
			r := runrec.StepExecutionResult{StepID: step.ID, StepName: step.Name, Status: runrec.StepError, ErrorMessage: err.Error(), Timestamp: time.Now()}
			st.results[step.ID] = r
			return r, err
		}
		r := runrec.StepExecutionResult{StepID: step.ID, StepName: step.Name, Status: runrec.StepSkipped, ErrorMessage: err.Error(), Timestamp: time.Now()}
		st.results[step.ID] = r
		return r, nil
	}

	warn := func(w apperrors.ResolutionWarning) {
		st.warnings[step.ID] = append(st.warnings[step.ID], w.Error())
	}

	deps := stepexec.Deps{
		Client:            e.client,
		Verifier:          e.verifier,
		TriggerSideEffect: e.sideEffectTrigger(def, env, st),
	}

	result := stepexec.Run(ctx, step, env, st.results, st.extracted, st.manualInputs, warn, deps)
	if warnings := st.warnings[step.ID]; len(warnings) > 0 {
		result.Warnings = append(result.Warnings, warnings...)
	}
	st.results[step.ID] = result
	rc.sink.Publish(events.Event{Kind: events.KindStepComplete, RunID: rc.runID, Timestamp: time.Now(), Step: &result})

	return result, nil
}

// sideEffectTrigger builds the fire-and-forget launcher handed to
// stepexec. The side-effect step runs detached on a snapshot of the
// current result cache and variable namespace; its result is discarded
// and never influences the outer run.
func (e *Engine) sideEffectTrigger(def *suite.TestSuite, env *suite.Environment, st *execState) func(context.Context, string) error {
	return func(_ context.Context, sideEffectID string) error {
		step, ok := def.Step(sideEffectID)
		if !ok {
			return apperrors.NewNotFoundError("step", sideEffectID, nil)
		}

		results := cloneResults(st.results)
		extracted := cloneMap(st.extracted)
		manualInputs := cloneMap(st.manualInputs)

		go func() {
			stepexec.Run(context.Background(), *step, env, results, extracted, manualInputs,
				func(apperrors.ResolutionWarning) {},
				stepexec.Deps{Client: e.client, Verifier: e.verifier})
		}()
		return nil
	}
}

func abortStep(step suite.TestStep, err error) runrec.StepExecutionResult {
	return runrec.StepExecutionResult{
		StepID:       step.ID,
		StepName:     step.Name,
		Status:       runrec.StepError,
		ErrorMessage: err.Error(),
		Timestamp:    time.Now(),
	}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneResults(m map[string]runrec.StepExecutionResult) map[string]runrec.StepExecutionResult {
	out := make(map[string]runrec.StepExecutionResult, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
