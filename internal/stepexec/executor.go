// Package stepexec implements the per-step pipeline: dependency gate,
// request assembly, dispatch with response-code-driven retry, variable
// extraction, response validation, and verification, yielding one
// StepExecutionResult. One Run entry point threads a context through
// every suspension point.
package stepexec

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/httpstep"
	"github.com/santhoshkumr96/orchestapi/internal/jsonpath"
	"github.com/santhoshkumr96/orchestapi/internal/matcher"
	"github.com/santhoshkumr96/orchestapi/internal/placeholder"
	"github.com/santhoshkumr96/orchestapi/internal/validation"
	"github.com/santhoshkumr96/orchestapi/internal/verify"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Deps bundles an executor invocation's collaborators. Verifier and
// Client are required; TriggerSideEffect may be nil when the step has no
// FIRE_SIDE_EFFECT handler.
type Deps struct {
	Client   *resty.Client
	Verifier *verify.Coordinator
	// TriggerSideEffect launches another step (by ID) fire-and-forget,
	// used when a response handler's action is FIRE_SIDE_EFFECT. The
	// suite executor supplies this since it owns the full step graph.
	TriggerSideEffect func(ctx context.Context, stepID string) error
}

// Run executes one step's full pipeline. results holds every
// already-computed StepExecutionResult in the current run (for the
// dependency gate); extracted is the run's shared variable namespace and
// is mutated in place with this step's own extractions before
// verification, so a verification query can reference the step's own
// output.
func Run(ctx context.Context, step suite.TestStep, env *suite.Environment, results map[string]runrec.StepExecutionResult, extracted map[string]string, manualInputs map[string]string, warn placeholder.WarningSink, deps Deps) runrec.StepExecutionResult {
	start := time.Now()

	if skip, ok := gate(step, results); ok {
		skip.Timestamp = start
		return skip
	}

	resolve := httpstep.NewResolver(env, extracted, manualInputs, warn)
	req := httpstep.Build(step, env, extracted, resolve)

	preListenTasks := deps.Verifier.StartPreListeners(ctx, step, env, resolve)

	result := runrec.StepExecutionResult{
		StepID:         step.ID,
		StepName:       step.Name,
		Timestamp:      start,
		RequestURL:     req.URL,
		RequestBody:    req.Body,
		RequestHeaders: req.Headers,
		RequestQuery:   req.Query,
	}

	policy := matcher.DeriveRetryPolicy(step.Handlers)
	maxAttempts := 1
	if policy.Found {
		maxAttempts = policy.RetryCount + 1
	}

	var resp httpstep.Response
	var action suite.HandlerAction
	var handlerMatched bool
	var sideEffectStepID string
	var dispatchErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		resp, dispatchErr = httpstep.Dispatch(ctx, deps.Client, step, env, req, resolve)
		if dispatchErr != nil {
			result.Status = runrec.StepError
			result.ErrorMessage = apperrors.NewTransportError(step.ID, dispatchErr).Error()
			result.Duration = time.Since(start)
			return result
		}

		handler, matched := matcher.Match(step.Handlers, resp.StatusCode)
		handlerMatched = matched
		if matched {
			action = handler.Action
			sideEffectStepID = handler.SideEffectStepID
		} else {
			action = matcher.DefaultAction(resp.StatusCode)
		}

		if action == suite.ActionRetry && attempt < maxAttempts {
			if policy.RetryDelaySec > 0 {
				select {
				case <-time.After(time.Duration(policy.RetryDelaySec) * time.Second):
				case <-ctx.Done():
					result.Status = runrec.StepError
					result.ErrorMessage = apperrors.NewCancelledError("", ctx.Err().Error()).Error()
					result.Duration = time.Since(start)
					return result
				}
			}
			continue
		}
		break
	}

	result.ResponseCode = resp.StatusCode
	result.ResponseBody = resp.Body
	result.ResponseHdrs = resp.Headers
	result.Duration = time.Since(start)

	switch action {
	case suite.ActionSuccess:
		if result.Attempts > 1 {
			result.Status = runrec.StepRetried
		} else {
			result.Status = runrec.StepSuccess
		}
	case suite.ActionFireSideEffect:
		if result.Attempts > 1 {
			result.Status = runrec.StepRetried
		} else {
			result.Status = runrec.StepSuccess
		}
		if sideEffectStepID != "" && deps.TriggerSideEffect != nil {
			if err := deps.TriggerSideEffect(ctx, sideEffectStepID); err != nil {
				result.Warnings = append(result.Warnings, "side effect step \""+sideEffectStepID+"\" could not be launched: "+err.Error())
			}
		}
	case suite.ActionRetry:
		result.Status = runrec.StepError
		result.ErrorMessage = "retry attempts exhausted after " + strconv.Itoa(result.Attempts) + " attempts, last response code " + strconv.Itoa(resp.StatusCode)
	default:
		result.Status = runrec.StepError
		if handlerMatched {
			result.ErrorMessage = "Handler matched code " + strconv.Itoa(resp.StatusCode) + " with ERROR action"
		} else {
			result.ErrorMessage = apperrors.NewHandlerMismatchError(step.ID, resp.StatusCode).Error()
		}
	}

	result.ExtractedVariables = extractVariables(step, req, resp)
	for k, v := range result.ExtractedVariables {
		extracted[step.Name+"."+k] = v
	}

	result.ValidationResults = runValidations(step, resp)

	applyVerifications(ctx, step, env, resolve, preListenTasks, deps.Verifier, &result)

	if result.Status.Succeeded() && anyValidationOrVerificationFailed(result) {
		result.Status = runrec.StepVerificationFailed
	}

	return result
}

// gate checks the step's dependency preconditions: every declared
// dependency must already have a successful result. A missing or failed
// dependency yields a SKIPPED result rather than running the step.
func gate(step suite.TestStep, results map[string]runrec.StepExecutionResult) (runrec.StepExecutionResult, bool) {
	for _, dep := range step.Dependencies {
		parent, ok := results[dep.DependsOnStepID]
		if !ok || !parent.Status.Succeeded() {
			name := dep.DependsOnStepID
			if ok && parent.StepName != "" {
				name = parent.StepName
			}
			err := apperrors.NewDependencySkipError(step.ID, name)
			return runrec.StepExecutionResult{
				StepID:       step.ID,
				StepName:     step.Name,
				Status:       runrec.StepSkipped,
				ErrorMessage: err.Error(),
			}, true
		}
	}
	return runrec.StepExecutionResult{}, false
}

func extractVariables(step suite.TestStep, req httpstep.Request, resp httpstep.Response) map[string]string {
	if len(step.Extracts) == 0 {
		return nil
	}
	out := make(map[string]string, len(step.Extracts))
	for _, ex := range step.Extracts {
		var value string
		switch ex.Source {
		case suite.SourceResponseBody:
			value = jsonpath.Extract(resp.Body, ex.JSONPath)
		case suite.SourceResponseHeader:
			value = headerLookup(resp.Headers, ex.Key)
		case suite.SourceStatusCode:
			value = placeholder.FormatStatusCode(resp.StatusCode)
		case suite.SourceRequestBody:
			value = jsonpath.Extract(req.Body, ex.JSONPath)
		case suite.SourceRequestHeader:
			value = headerLookup(req.Headers, ex.Key)
		case suite.SourceQueryParam:
			value = req.Query[ex.Key]
		case suite.SourceRequestURL:
			value = req.URL
		}
		out[ex.VariableName] = value
	}
	return out
}

func headerLookup(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func runValidations(step suite.TestStep, resp httpstep.Response) []runrec.ValidationResult {
	if len(step.Validations) == 0 {
		return nil
	}
	out := make([]runrec.ValidationResult, 0, len(step.Validations))
	for _, v := range step.Validations {
		r := validation.Run(v, validation.Response{Headers: resp.Headers, Body: resp.Body})
		out = append(out, runrec.ValidationResult{Type: string(v.Type), Passed: r.Passed, Message: r.Detail})
	}
	return out
}

func applyVerifications(ctx context.Context, step suite.TestStep, env *suite.Environment, resolve httpstep.Resolver, preListenTasks []*verify.PendingTask, v *verify.Coordinator, result *runrec.StepExecutionResult) {
	preListenIdx := 0
	for _, ver := range step.Verifies {
		var vr runrec.VerificationResult
		if ver.PreListen {
			if preListenIdx < len(preListenTasks) {
				vr = v.AwaitPreListener(preListenTasks[preListenIdx])
				preListenIdx++
			}
		} else {
			vr = v.RunPostListen(ctx, ver, env, resolve)
		}
		result.VerificationResults = append(result.VerificationResults, vr)
	}
}

func anyValidationOrVerificationFailed(result runrec.StepExecutionResult) bool {
	for _, v := range result.ValidationResults {
		if !v.Passed {
			return true
		}
	}
	for _, v := range result.VerificationResults {
		if v.Status == runrec.VerificationFailed || v.Status == runrec.VerificationError || v.Status == runrec.VerificationTimeout {
			return true
		}
	}
	return false
}
