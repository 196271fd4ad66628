// Package connector implements the engine's sole dependency on
// infrastructure backends: one Execute(type, config, query,
// timeoutSeconds) -> (string, error) entry point fronting pluggable
// backend drivers, registered by connector type.
package connector

import (
	"context"
	"sync"
	"time"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Driver executes one query against a connector-typed backend and
// returns its result serialized as a JSON-compatible string (so the
// jsonpath and assertion packages can operate on it uniformly).
type Driver interface {
	Execute(ctx context.Context, config map[string]string, query string) (string, error)
}

// Gateway dispatches Execute calls to the Driver registered for a
// ConnectorType.
type Gateway struct {
	mu      sync.RWMutex
	drivers map[suite.ConnectorType]Driver
}

// NewGateway returns an empty Gateway; call Register for each backend the
// deployment needs.
func NewGateway() *Gateway {
	return &Gateway{drivers: make(map[suite.ConnectorType]Driver)}
}

// Register binds a Driver to a ConnectorType, overwriting any previous
// binding. Safe for concurrent use.
func (g *Gateway) Register(t suite.ConnectorType, d Driver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drivers[t] = d
}

// Execute runs query against the connector of the given type using
// config, bounding the call to timeoutSeconds.
func (g *Gateway) Execute(ctx context.Context, t suite.ConnectorType, config map[string]string, query string, timeoutSeconds int) (string, error) {
	g.mu.RLock()
	d, ok := g.drivers[t]
	g.mu.RUnlock()
	if !ok {
		return "", apperrors.NewNotFoundError("connector driver", string(t), nil)
	}

	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	result, err := d.Execute(callCtx, config, query)
	if err != nil {
		return "", apperrors.NewTransportError(string(t), err)
	}
	return result, nil
}
