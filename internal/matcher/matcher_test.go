package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
)

func TestCodeMatchesExact(t *testing.T) {
	t.Parallel()

	require.True(t, CodeMatches("200", 200))
	require.False(t, CodeMatches("200", 201))
}

func TestCodeMatchesWildcardClass(t *testing.T) {
	t.Parallel()

	require.True(t, CodeMatches("2XX", 200))
	require.True(t, CodeMatches("2XX", 299))
	require.False(t, CodeMatches("2XX", 301))
}

func TestCodeMatchesWildcardSubClass(t *testing.T) {
	t.Parallel()

	require.True(t, CodeMatches("40x", 404))
	require.True(t, CodeMatches("40x", 400))
	require.False(t, CodeMatches("40x", 410))
	require.False(t, CodeMatches("40x", 500))
}

func TestMatchLowerPriorityWinsOverMoreSpecificCode(t *testing.T) {
	t.Parallel()

	// exact 200/SUCCESS at priority 10 vs wildcard 2xx/ERROR at priority
	// 1. The lower-priority handler wins even though the other is an exact
	// match, so the actual response resolves to ERROR.
	handlers := []suite.ResponseHandler{
		{MatchCode: "200", Action: suite.ActionSuccess, Priority: 10},
		{MatchCode: "2XX", Action: suite.ActionError, Priority: 1},
	}

	got, ok := Match(handlers, 200)
	require.True(t, ok)
	require.Equal(t, suite.ActionError, got.Action)
}

func TestMatchNoHandlerMatches(t *testing.T) {
	t.Parallel()

	handlers := []suite.ResponseHandler{
		{MatchCode: "404", Action: suite.ActionError, Priority: 1},
	}

	_, ok := Match(handlers, 500)
	require.False(t, ok)
}

func TestMatchStableAmongEqualPriority(t *testing.T) {
	t.Parallel()

	handlers := []suite.ResponseHandler{
		{MatchCode: "2XX", Action: suite.ActionSuccess, Priority: 5},
		{MatchCode: "200", Action: suite.ActionFireSideEffect, Priority: 5},
	}

	got, ok := Match(handlers, 200)
	require.True(t, ok)
	require.Equal(t, suite.ActionSuccess, got.Action)
}

func TestDeriveRetryPolicyPicksLargestRetryCount(t *testing.T) {
	t.Parallel()

	handlers := []suite.ResponseHandler{
		{MatchCode: "500", Action: suite.ActionRetry, RetryCount: 2, RetryDelaySec: 1},
		{MatchCode: "503", Action: suite.ActionRetry, RetryCount: 5, RetryDelaySec: 3},
		{MatchCode: "404", Action: suite.ActionError},
	}

	policy := DeriveRetryPolicy(handlers)
	require.True(t, policy.Found)
	require.Equal(t, 5, policy.RetryCount)
	require.Equal(t, 3, policy.RetryDelaySec)
}

func TestDeriveRetryPolicyAbsentWhenNoRetryHandler(t *testing.T) {
	t.Parallel()

	policy := DeriveRetryPolicy([]suite.ResponseHandler{
		{MatchCode: "200", Action: suite.ActionSuccess},
	})
	require.False(t, policy.Found)
}

func TestDefaultActionIs2xxSuccessElseError(t *testing.T) {
	t.Parallel()

	require.Equal(t, suite.ActionSuccess, DefaultAction(204))
	require.Equal(t, suite.ActionError, DefaultAction(404))
	require.Equal(t, suite.ActionError, DefaultAction(500))
}
