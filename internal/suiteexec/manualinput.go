package suiteexec

import (
	"context"
	"errors"
	"time"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/events"
	"github.com/santhoshkumr96/orchestapi/internal/placeholder"
	"github.com/santhoshkumr96/orchestapi/internal/runregistry"
)

// errManualInputNoDefault is recorded verbatim as the skipped step's
// errorMessage, so it reads as a sentence rather than a Go error string.
var errManualInputNoDefault = errors.New("Manual input required but no default provided (scheduled run)")

// runContext bundles the per-run collaborators manual-input resolution
// needs: the registry (for rendezvous and cross-step reuse) and the
// event sink (to announce input-required), plus whether this run is
// executing non-interactively (a schedule replay).
type runContext struct {
	runID          string
	registry       *runregistry.Registry
	sink           events.Sink
	nonInteractive bool
}

// resolveManualInputs scans step's resolvable text for #{name[:default]}
// references and resolves each one: reuse a cached answer from an
// earlier prompt in this run, apply its default in non-interactive mode,
// or suspend the run waiting for an answer in interactive mode. With
// reprompt set, cached answers are not reused silently — the prompt is
// re-emitted carrying the cached value so the caller can offer a reuse
// toggle. Returns a *CancelledError if the run was cancelled while
// suspended; any other error means the step should be SKIPPED (an
// unresolvable manual input with no default in non-interactive mode).
func resolveManualInputs(ctx context.Context, rc runContext, step suite.TestStep, manualInputs map[string]string, reprompt bool) error {
	refs := gatherManualInputRefs(step)

	for _, ref := range refs {
		cached, hasCached := manualInputs[ref.Name]
		if !hasCached {
			cached, hasCached = rc.registry.ManualInput(rc.runID, ref.Name)
		}
		if hasCached && (!reprompt || rc.nonInteractive) {
			manualInputs[ref.Name] = cached
			continue
		}

		if rc.nonInteractive {
			if !ref.HasDefault {
				return errManualInputNoDefault
			}
			manualInputs[ref.Name] = ref.Default
			rc.registry.CacheManualInput(rc.runID, ref.Name, ref.Default)
			continue
		}

		rc.sink.Publish(events.Event{
			Kind:             events.KindInputRequired,
			RunID:            rc.runID,
			Timestamp:        time.Now(),
			StepID:           step.ID,
			StepName:         step.Name,
			InputName:        ref.Name,
			InputDefault:     ref.Default,
			HasDefault:       ref.HasDefault,
			InputCachedValue: cached,
			HasCachedValue:   hasCached,
		})

		value, err := rc.registry.RequestInput(rc.runID)
		if err != nil {
			return err
		}
		manualInputs[ref.Name] = value
		rc.registry.CacheManualInput(rc.runID, ref.Name, value)
	}

	return nil
}

// gatherManualInputRefs scans every text field of step that passes
// through placeholder resolution for #{...} references.
func gatherManualInputRefs(step suite.TestStep) []placeholder.ManualInputRef {
	var refs []placeholder.ManualInputRef
	seen := make(map[string]bool)

	add := func(text string) {
		for _, ref := range placeholder.Scan(text) {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			refs = append(refs, ref)
		}
	}

	add(step.URL)
	add(step.Body)
	for _, h := range step.Headers {
		add(h.Value)
	}
	for _, q := range step.QueryParams {
		add(q.Value)
	}
	for _, f := range step.FormFields {
		add(f.Value)
	}

	return refs
}
