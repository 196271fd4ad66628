package suiteexec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	"github.com/santhoshkumr96/orchestapi/internal/connector"
	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/events"
	"github.com/santhoshkumr96/orchestapi/internal/runregistry"
	"github.com/santhoshkumr96/orchestapi/internal/verify"
)

func newEngine() *Engine {
	return New(resty.New(), verify.NewCoordinator(connector.NewGateway()), runregistry.New())
}

// A linear chain where the second step references a variable extracted
// from the first exercises placeholder resolution across step
// boundaries end to end.
func TestRunLinearChainExtractsAndPropagatesVariables(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Write([]byte(`{"token":"tok-1"}`))
		case "/me":
			require.Equal(t, "tok-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"u1"}`))
		}
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s1",
		Name: "linear chain",
		Steps: []suite.TestStep{
			{
				ID: "login", Name: "login", Method: "GET", URL: server.URL + "/login", SortOrder: 0,
				Extracts: []suite.ExtractVariable{{VariableName: "token", Source: suite.SourceResponseBody, JSONPath: "$.token"}},
			},
			{
				ID: "me", Name: "me", Method: "GET", URL: server.URL + "/me", SortOrder: 1,
				Headers:      []suite.Header{{Key: "Authorization", Value: "{{login.token}}"}},
				Dependencies: []suite.Dependency{{DependsOnStepID: "login", UseCache: true}},
			},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-1", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Len(t, result.Steps, 2)
	require.Equal(t, runrec.StepSuccess, result.Steps[1].Status)
}

// A cacheable dependencyOnly step referenced by two dependents with
// UseCache=true and no TTL bound is materialized once and reused.
func TestRunReusesCacheableDependencyWithNoTTLBound(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s2",
		Name: "ttl reuse",
		Steps: []suite.TestStep{
			{ID: "token", Name: "token", Method: "GET", URL: server.URL + "/token", Cacheable: true, CacheTTLSec: 0, DependencyOnly: true},
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/plain", SortOrder: 0, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: true}}},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/plain", SortOrder: 1, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: true}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-2", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Equal(t, 1, tokenCalls, "token dependency should be materialized once and reused")
}

// Once a cacheable dependencyOnly step's CacheTTLSec elapses mid-run,
// a later dependent's request triggers a refresh recorded in
// RefreshedStepIDs, rather than reusing the stale value.
func TestRunRefreshesCacheableDependencyAfterTTLExpires(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1100 * time.Millisecond)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s2c",
		Name: "ttl expiry",
		Steps: []suite.TestStep{
			{ID: "token", Name: "token", Method: "GET", URL: server.URL + "/token", Cacheable: true, CacheTTLSec: 1, DependencyOnly: true},
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/plain", SortOrder: 0, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: true}}},
			{ID: "slow", Name: "slow", Method: "GET", URL: server.URL + "/slow", SortOrder: 1},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/plain", SortOrder: 2, Dependencies: []suite.Dependency{{DependsOnStepID: "slow", UseCache: true}, {DependsOnStepID: "token", UseCache: true}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-2c", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Equal(t, 2, tokenCalls, "token's TTL elapsed during the slow step, so b's request must refresh it")
	require.Contains(t, result.RefreshedStepIDs, "token")
}

func TestRunForcesFreshCallWhenUseCacheFalse(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s2b",
		Name: "no cache reuse",
		Steps: []suite.TestStep{
			{ID: "token", Name: "token", Method: "GET", URL: server.URL + "/token", Cacheable: true, DependencyOnly: true},
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/plain", SortOrder: 0, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: false}}},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/plain", SortOrder: 1, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: false}}},
		},
	}

	_, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-2b", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, 2, tokenCalls, "UseCache=false must force a fresh call for every dependent")
}

func TestRunSkipsDependentWhenDependencyFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-skip",
		Name: "dependency failure",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL, SortOrder: 0},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL, SortOrder: 1, Dependencies: []suite.Dependency{{DependsOnStepID: "a", UseCache: true}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-3", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunFailure, result.Status)
	require.Equal(t, runrec.StepError, result.Steps[0].Status)
	require.Equal(t, runrec.StepSkipped, result.Steps[1].Status)
}

// A non-interactive run applies a manual-input placeholder's declared
// default instead of prompting.
func TestRunNonInteractiveAppliesManualInputDefault(t *testing.T) {
	t.Parallel()

	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Actor")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s5",
		Name: "manual input default",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL, Headers: []suite.Header{{Key: "X-Actor", Value: "#{actor:anonymous}"}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-5", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Equal(t, "anonymous", gotHeader)
}

func TestRunNonInteractiveSkipsStepWithNoDefaultManualInput(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s5b",
		Name: "manual input no default",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL, Headers: []suite.Header{{Key: "X-Actor", Value: "#{actor}"}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-5b", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.StepSkipped, result.Steps[0].Status)
}

// Interactive manual input: the run suspends until the test submits a
// value through the registry, as a CLI/TUI front end would.
func TestRunInteractiveSuspendsForManualInputThenResumes(t *testing.T) {
	t.Parallel()

	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Actor")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-interactive",
		Name: "manual input interactive",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL, Headers: []suite.Header{{Key: "X-Actor", Value: "#{actor}"}}},
		},
	}

	registry := runregistry.New()
	eng := New(resty.New(), verify.NewCoordinator(connector.NewGateway()), registry)

	var requiredSeen bool
	sink := events.SinkFunc(func(e events.Event) {
		if e.Kind == events.KindInputRequired {
			requiredSeen = true
			go func() {
				for !registry.SubmitInput("run-interactive", "alice") {
					time.Sleep(5 * time.Millisecond)
				}
			}()
		}
	})

	result, err := eng.Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-interactive", Sink: sink})
	require.NoError(t, err)
	require.True(t, requiredSeen)
	require.Equal(t, "alice", gotHeader)
	require.Equal(t, runrec.RunSuccess, result.Status)
}

func TestRunTriggersFireSideEffectStep(t *testing.T) {
	t.Parallel()

	var sideEffectCalled atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cleanup" {
			sideEffectCalled.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-fx",
		Name: "side effect",
		Steps: []suite.TestStep{
			{
				ID: "cleanup", Name: "cleanup", Method: "GET", URL: server.URL + "/cleanup", DependencyOnly: true,
			},
			{
				ID: "a", Name: "a", Method: "GET", URL: server.URL, SortOrder: 0,
				Handlers: []suite.ResponseHandler{{MatchCode: "200", Action: suite.ActionFireSideEffect, SideEffectStepID: "cleanup", Priority: 1}},
			},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-fx", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Eventually(t, sideEffectCalled.Load, 2*time.Second, 10*time.Millisecond,
		"side effect step runs detached and must fire shortly after the handler matches")
}

// A top-level cacheable step whose TTL elapses while a slow sibling runs
// is re-executed before its next dependent, and the final step list
// reports only the refreshed instance.
func TestRunRefreshesTopLevelCacheableStepAndReportsNewestInstance(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1100 * time.Millisecond)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-ttl-top",
		Name: "ttl refresh of scheduled step",
		Steps: []suite.TestStep{
			{ID: "token", Name: "token", Method: "GET", URL: server.URL + "/token", SortOrder: 0, Cacheable: true, CacheTTLSec: 1},
			{ID: "slow", Name: "slow", Method: "GET", URL: server.URL + "/slow", SortOrder: 1},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/plain", SortOrder: 2, Dependencies: []suite.Dependency{{DependsOnStepID: "slow", UseCache: true}, {DependsOnStepID: "token", UseCache: true}}},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-ttl-top", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Equal(t, 2, tokenCalls)
	require.Contains(t, result.RefreshedStepIDs, "token")

	var tokenEntries []runrec.StepExecutionResult
	for _, s := range result.Steps {
		if s.StepID == "token" {
			tokenEntries = append(tokenEntries, s)
		}
	}
	require.Len(t, tokenEntries, 1)
	require.False(t, tokenEntries[0].FromCache, "the reported entry must be the refreshed instance")
}

// The first materialization prompts; a refreshed dependency with
// ReuseManualInput=false prompts again, carrying the previously submitted
// value as cachedValue; with ReuseManualInput=true the cached answer is
// reused silently.
func TestRunRepromptsOnRefreshUnlessReuseManualInput(t *testing.T) {
	t.Parallel()

	var otps []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if otp := r.Header.Get("X-OTP"); otp != "" {
			otps = append(otps, otp)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-reprompt",
		Name: "manual input reprompt",
		Steps: []suite.TestStep{
			{ID: "token", Name: "token", Method: "GET", URL: server.URL, DependencyOnly: true, Headers: []suite.Header{{Key: "X-OTP", Value: "#{otp}"}}},
			{ID: "a", Name: "a", Method: "GET", URL: server.URL, SortOrder: 0, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: false, ReuseManualInput: true}}},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL, SortOrder: 1, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: false, ReuseManualInput: false}}},
			{ID: "c", Name: "c", Method: "GET", URL: server.URL, SortOrder: 2, Dependencies: []suite.Dependency{{DependsOnStepID: "token", UseCache: false, ReuseManualInput: true}}},
		},
	}

	registry := runregistry.New()
	eng := New(resty.New(), verify.NewCoordinator(connector.NewGateway()), registry)

	var prompts []events.Event
	answers := []string{"111", "222"}
	sink := events.SinkFunc(func(e events.Event) {
		if e.Kind != events.KindInputRequired {
			return
		}
		prompts = append(prompts, e)
		answer := answers[len(prompts)-1]
		go func() {
			for !registry.SubmitInput("run-reprompt", answer) {
				time.Sleep(5 * time.Millisecond)
			}
		}()
	})

	result, err := eng.Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-reprompt", Sink: sink})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)

	require.Len(t, prompts, 2, "first materialization prompts, =false re-prompts, ReuseManualInput=true reuses")
	require.False(t, prompts[0].HasCachedValue)
	require.True(t, prompts[1].HasCachedValue)
	require.Equal(t, "111", prompts[1].InputCachedValue)
	require.Equal(t, []string{"111", "222", "222"}, otps)
}

func TestRunNonInteractiveSkipMessageNamesMissingDefault(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-skip-msg",
		Name: "manual input no default message",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/#{region}"},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-skip-msg", NonInteractive: true})
	require.NoError(t, err)
	require.Equal(t, runrec.StepSkipped, result.Steps[0].Status)
	require.Equal(t, "Manual input required but no default provided (scheduled run)", result.Steps[0].ErrorMessage)
}

// TargetStepID restricts the run to the target and its transitive
// predecessors, leaving unrelated steps untouched.
func TestRunTargetStepExecutesMinimalPrefix(t *testing.T) {
	t.Parallel()

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-target",
		Name: "subgraph run",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/a", SortOrder: 0},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/b", SortOrder: 1, Dependencies: []suite.Dependency{{DependsOnStepID: "a", UseCache: true}}},
			{ID: "c", Name: "c", Method: "GET", URL: server.URL + "/c", SortOrder: 2},
		},
	}

	result, err := newEngine().Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-target", NonInteractive: true, TargetStepID: "b"})
	require.NoError(t, err)
	require.Equal(t, runrec.RunSuccess, result.Status)
	require.Equal(t, []string{"/a", "/b"}, paths)
	require.Len(t, result.Steps, 2)
}

// Cancelling a run while it is suspended on a manual-input prompt
// records the cancelled step as an error and stops the remaining
// execution order; the run's final status is FAILURE.
func TestRunCancelledDuringPromptStopsRemainingSteps(t *testing.T) {
	t.Parallel()

	var bCalled atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		bCalled.Store(true)
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	def := &suite.TestSuite{
		ID:   "s-cancel",
		Name: "cancelled run",
		Steps: []suite.TestStep{
			{ID: "a", Name: "a", Method: "GET", URL: server.URL + "/a", SortOrder: 0, Headers: []suite.Header{{Key: "X-Actor", Value: "#{actor}"}}},
			{ID: "b", Name: "b", Method: "GET", URL: server.URL + "/b", SortOrder: 1},
		},
	}

	registry := runregistry.New()
	eng := New(resty.New(), verify.NewCoordinator(connector.NewGateway()), registry)

	sink := events.SinkFunc(func(e events.Event) {
		if e.Kind == events.KindInputRequired {
			go registry.CancelRun("run-cancel", "operator abort")
		}
	})

	result, err := eng.Run(context.Background(), def, &suite.Environment{}, RunOptions{RunID: "run-cancel", Sink: sink})
	require.NoError(t, err)
	require.Equal(t, runrec.RunFailure, result.Status)
	require.Len(t, result.Steps, 1)
	require.Equal(t, runrec.StepError, result.Steps[0].Status)
	require.Contains(t, result.Steps[0].ErrorMessage, "cancelled")
	require.False(t, bCalled.Load(), "steps after the cancellation point must not run")
}
