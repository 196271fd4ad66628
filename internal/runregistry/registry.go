// Package runregistry tracks live runs: their event sink, their
// cooperative-cancellation hook, and the single pending manual-input
// rendezvous a run may be suspended on at any moment.
package runregistry

import (
	"sync"

	"github.com/santhoshkumr96/orchestapi/internal/events"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// inputWaiter is the single-slot rendezvous a RequestInput call blocks
// on; exactly one of SubmitInput/CancelRun ever resolves it.
type inputWaiter struct {
	resultCh chan inputResult
}

type inputResult struct {
	value string
	err   error
}

type runState struct {
	sink        events.Sink
	cancel      func()
	waiter      *inputWaiter
	manualCache map[string]string
	cancelled   bool
	reason      string
}

// Registry is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*runState
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{runs: make(map[string]*runState)}
}

// Register records a new run's event sink and cancellation hook. cancel
// is invoked by CancelRun; it may be nil.
func (r *Registry) Register(runID string, sink events.Sink, cancel func()) {
	if sink == nil {
		sink = events.Nop
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[runID] = &runState{sink: sink, cancel: cancel, manualCache: make(map[string]string)}
}

// Unregister drops a completed run's state. Call after the run's final
// event has been published.
func (r *Registry) Unregister(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
}

// Sink returns the event sink bound to runID, or events.Nop if unknown.
func (r *Registry) Sink(runID string) events.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.runs[runID]; ok {
		return st.sink
	}
	return events.Nop
}

// RequestInput registers a pending input wait for runID and blocks until
// SubmitInput or CancelRun resolves it. Exactly one #{name} prompt is
// outstanding per run at a time. A run already cancelled returns the
// cancellation error immediately instead of blocking, covering the
// window where CancelRun lands before the executor reaches its next
// prompt.
func (r *Registry) RequestInput(runID string) (string, error) {
	r.mu.Lock()
	st, ok := r.runs[runID]
	if !ok {
		r.mu.Unlock()
		return "", apperrors.NewNotFoundError("run", runID, nil)
	}
	if st.cancelled {
		reason := st.reason
		r.mu.Unlock()
		return "", apperrors.NewCancelledError(runID, reason)
	}
	w := &inputWaiter{resultCh: make(chan inputResult, 1)}
	st.waiter = w
	r.mu.Unlock()

	res := <-w.resultCh
	return res.value, res.err
}

// SubmitInput resolves runID's outstanding RequestInput with value. It is
// a no-op (ok=false) if no input is currently pending.
func (r *Registry) SubmitInput(runID, value string) bool {
	r.mu.Lock()
	st, ok := r.runs[runID]
	if !ok || st.waiter == nil {
		r.mu.Unlock()
		return false
	}
	w := st.waiter
	st.waiter = nil
	r.mu.Unlock()

	w.resultCh <- inputResult{value: value}
	return true
}

// CancelRun invokes runID's cancellation hook and, if a manual-input
// prompt is outstanding, resolves it exceptionally. The cancellation is
// remembered so a prompt raised after this call fails fast.
func (r *Registry) CancelRun(runID, reason string) bool {
	r.mu.Lock()
	st, ok := r.runs[runID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	st.cancelled = true
	st.reason = reason
	w := st.waiter
	st.waiter = nil
	cancel := st.cancel
	r.mu.Unlock()

	if w != nil {
		w.resultCh <- inputResult{err: apperrors.NewCancelledError(runID, reason)}
	}
	if cancel != nil {
		cancel()
	}
	return true
}

// CacheManualInput stores a manual input value under runID so a later
// step whose dependency declares reuseManualInput=true can reuse it
// without re-prompting.
func (r *Registry) CacheManualInput(runID, name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.runs[runID]; ok {
		st.manualCache[name] = value
	}
}

// ManualInput looks up a previously cached manual input for runID.
func (r *Registry) ManualInput(runID, name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.runs[runID]
	if !ok {
		return "", false
	}
	v, ok := st.manualCache[name]
	return v, ok
}
