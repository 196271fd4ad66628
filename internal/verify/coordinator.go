// Package verify implements the verification coordinator: pre-listener
// lifecycle (spawned before the step's HTTP call so they observe side
// effects it triggers) and post-listen delay-then-query verifications,
// followed by assertion evaluation.
package verify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/santhoshkumr96/orchestapi/internal/assertion"
	"github.com/santhoshkumr96/orchestapi/internal/connector"
	"github.com/santhoshkumr96/orchestapi/internal/domain/runrec"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/jsonpath"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// SettleDelay is the pause after spawning pre-listeners before the
// producing HTTP call fires, giving the listening connection time to
// reach end-of-stream. A variable so tests can shrink it.
var SettleDelay = 500 * time.Millisecond

var kafkaKeyLine = regexp.MustCompile(`(?m)^\s*key\s*=.*$\n?`)
var unresolvedPlaceholder = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Coordinator runs Verification blocks against the connector gateway.
type Coordinator struct {
	gateway *connector.Gateway
}

// NewCoordinator binds a Coordinator to a connector gateway.
func NewCoordinator(gateway *connector.Gateway) *Coordinator {
	return &Coordinator{gateway: gateway}
}

// PendingTask is an in-flight pre-listener task awaiting its result.
type PendingTask struct {
	verification suite.Verification
	resultCh     chan runrec.VerificationResult
}

// StartPreListeners spawns one task per preListen=true verification on
// step, resolving its query against resolve, then sleeps SettleDelay
// before returning so callers can issue the HTTP call immediately after.
// Kafka queries whose resolved text still contains an unresolved
// {{step.var}} reference (the step's own not-yet-available response)
// have their "key=..." line stripped.
func (c *Coordinator) StartPreListeners(ctx context.Context, step suite.TestStep, env *suite.Environment, resolve func(string) string) []*PendingTask {
	var tasks []*PendingTask

	for _, v := range step.Verifies {
		if !v.PreListen {
			continue
		}
		v := v
		query := resolve(v.Query)

		connType, config, ok := lookupConnector(env, v.ConnectorName)
		if ok && connType == suite.ConnectorKafka && unresolvedPlaceholder.MatchString(query) {
			query = kafkaKeyLine.ReplaceAllString(query, "")
		}

		t := &PendingTask{verification: v, resultCh: make(chan runrec.VerificationResult, 1)}
		tasks = append(tasks, t)

		go func() {
			t.resultCh <- c.runQuery(ctx, v, connType, config, ok, query, v.TimeoutSeconds)
		}()
	}

	if len(tasks) > 0 {
		time.Sleep(SettleDelay)
	}
	return tasks
}

// AwaitPreListener blocks for t's result, which arrives when the
// listener matches or its own timeoutSeconds elapses.
func (c *Coordinator) AwaitPreListener(t *PendingTask) runrec.VerificationResult {
	return <-t.resultCh
}

// RunPostListen executes a non-pre-listened verification: sleep
// timeoutSeconds (the post-listen delay), then query the connector with
// queryTimeoutSeconds and evaluate its assertions.
func (c *Coordinator) RunPostListen(ctx context.Context, v suite.Verification, env *suite.Environment, resolve func(string) string) runrec.VerificationResult {
	if v.TimeoutSeconds > 0 {
		select {
		case <-time.After(time.Duration(v.TimeoutSeconds) * time.Second):
		case <-ctx.Done():
			return runrec.VerificationResult{ConnectorName: v.ConnectorName, Query: v.Query, Status: runrec.VerificationError, Message: ctx.Err().Error()}
		}
	}

	query := resolve(v.Query)
	connType, config, ok := lookupConnector(env, v.ConnectorName)
	return c.runQuery(ctx, v, connType, config, ok, query, v.QueryTimeoutSeconds)
}

func (c *Coordinator) runQuery(ctx context.Context, v suite.Verification, connType suite.ConnectorType, config map[string]string, connOK bool, query string, timeoutSeconds int) runrec.VerificationResult {
	if !connOK {
		return runrec.VerificationResult{
			ConnectorName: v.ConnectorName,
			Query:         v.Query,
			Status:        runrec.VerificationError,
			Message:       apperrors.NewNotFoundError("connector", v.ConnectorName, nil).Error(),
		}
	}

	raw, err := c.gateway.Execute(ctx, connType, config, query, timeoutSeconds)
	if err != nil {
		status := runrec.VerificationError
		if ctx.Err() != nil || strings.Contains(err.Error(), "deadline") {
			status = runrec.VerificationTimeout
		}
		return runrec.VerificationResult{ConnectorName: v.ConnectorName, Query: v.Query, Status: status, Message: err.Error()}
	}

	for _, a := range v.Assertions {
		actual := jsonpath.Extract(raw, a.JSONPath)
		if !assertion.Evaluate(a.Operator, actual, a.ExpectedValue) {
			return runrec.VerificationResult{
				ConnectorName: v.ConnectorName,
				Query:         v.Query,
				Status:        runrec.VerificationFailed,
				Message:       "assertion failed: " + a.JSONPath + " " + string(a.Operator) + " " + a.ExpectedValue,
				RawResult:     raw,
			}
		}
	}

	return runrec.VerificationResult{ConnectorName: v.ConnectorName, Query: v.Query, Status: runrec.VerificationPassed, RawResult: raw}
}

func lookupConnector(env *suite.Environment, name string) (suite.ConnectorType, map[string]string, bool) {
	if env == nil {
		return "", nil, false
	}
	c, ok := env.Connector(name)
	if !ok {
		return "", nil, false
	}
	return c.Type, c.Config, true
}
