package httpstep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
)

func identity(text string) string { return text }

func TestBuildPrependsBaseURLForRelativePath(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{Method: "GET", URL: "/users/1"}
	env := &suite.Environment{BaseURL: "https://api.example.com/"}

	req := Build(step, env, nil, identity)
	require.Equal(t, "https://api.example.com/users/1", req.URL)
}

func TestBuildLeavesAbsoluteURLUntouched(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{Method: "GET", URL: "https://other.example.com/ping"}
	env := &suite.Environment{BaseURL: "https://api.example.com"}

	req := Build(step, env, nil, identity)
	require.Equal(t, "https://other.example.com/ping", req.URL)
}

func TestBuildLayersStepHeaderOverDefault(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{
		Headers: []suite.Header{{Key: "Authorization", Value: "Bearer step-token"}},
	}
	env := &suite.Environment{
		DefaultHeaders: []suite.DefaultHeader{
			{Key: "Authorization", Value: "Bearer default-token"},
			{Key: "X-Client", Value: "orchestapi"},
		},
	}

	req := Build(step, env, nil, identity)
	require.Equal(t, "Bearer step-token", req.Headers["Authorization"])
	require.Equal(t, "orchestapi", req.Headers["X-Client"])
}

func TestBuildHonorsDisabledDefaultHeaders(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{DisabledDefaultHdrs: []string{"x-client"}}
	env := &suite.Environment{
		DefaultHeaders: []suite.DefaultHeader{{Key: "X-Client", Value: "orchestapi"}},
	}

	req := Build(step, env, nil, identity)
	_, present := req.Headers["X-Client"]
	require.False(t, present)
}

func TestBuildAssemblesQueryParams(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{QueryParams: []suite.QueryParam{{Key: "page", Value: "2"}}}
	req := Build(step, nil, nil, identity)
	require.Equal(t, "2", req.Query["page"])
}

func TestBuildResolvesJSONBody(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{BodyType: suite.BodyJSON, Body: `{"id":"${USER_ID}"}`}
	resolve := func(text string) string { return "resolved:" + text }

	req := Build(step, nil, nil, resolve)
	require.Equal(t, `resolved:{"id":"${USER_ID}"}`, req.Body)
}

func TestBuildWithNilEnvironmentLeavesURLRelative(t *testing.T) {
	t.Parallel()

	step := suite.TestStep{URL: "/ping"}
	req := Build(step, nil, nil, identity)
	require.Equal(t, "/ping", req.URL)
}
