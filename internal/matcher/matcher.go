// Package matcher implements response-code-driven control flow:
// picking the ResponseHandler (if any) whose matchCode
// pattern matches an observed HTTP status, in ascending priority order,
// and deriving the outer retry bound before the first request attempt.
package matcher

import (
	"sort"
	"strconv"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
)

// CodeMatches reports whether pattern (an exact "NNN" or a wildcard using
// "X"/"x" in place of digits, e.g. "2XX" or "5xx") matches code.
func CodeMatches(pattern string, code int) bool {
	s := strconv.Itoa(code)
	if len(pattern) != 3 || len(s) != 3 {
		return pattern == s
	}
	for i := 0; i < 3; i++ {
		p := pattern[i]
		if p == 'X' || p == 'x' {
			continue
		}
		if p != s[i] {
			return false
		}
	}
	return true
}

// Match returns the handler with the lowest Priority whose MatchCode
// matches code, or ok=false if none match.
func Match(handlers []suite.ResponseHandler, code int) (suite.ResponseHandler, bool) {
	candidates := make([]suite.ResponseHandler, 0, len(handlers))
	for _, h := range handlers {
		if CodeMatches(h.MatchCode, code) {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return suite.ResponseHandler{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})
	return candidates[0], true
}

// RetryPolicy is the outer retry loop bound derived before the first
// request attempt: the RETRY handler with the largest
// RetryCount.
type RetryPolicy struct {
	RetryCount    int
	RetryDelaySec int
	Found         bool
}

// DeriveRetryPolicy scans handlers for the RETRY action with the largest
// RetryCount, used as the outer attempt-loop bound.
func DeriveRetryPolicy(handlers []suite.ResponseHandler) RetryPolicy {
	var policy RetryPolicy
	for _, h := range handlers {
		if h.Action != suite.ActionRetry {
			continue
		}
		if !policy.Found || h.RetryCount > policy.RetryCount {
			policy = RetryPolicy{RetryCount: h.RetryCount, RetryDelaySec: h.RetryDelaySec, Found: true}
		}
	}
	return policy
}

// DefaultAction applies the implicit default when no handler is defined:
// 2xx is SUCCESS, everything else is ERROR.
func DefaultAction(code int) suite.HandlerAction {
	if code >= 200 && code < 300 {
		return suite.ActionSuccess
	}
	return suite.ActionError
}
