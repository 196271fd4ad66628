package drivers

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Elasticsearch treats query as "<method> <path> [jsonBody]" (method
// defaults to GET) and issues it against config["url"] using the same
// resty client the HTTP step executor uses, rather than pulling in a
// dedicated Elasticsearch client for a connector that is, at its core, a
// JSON-over-HTTP search endpoint.
type Elasticsearch struct{}

func (Elasticsearch) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	base := config["url"]
	if base == "" {
		return "", apperrors.NewValidationError("config", "elasticsearch connector requires \"url\"", nil)
	}

	method := "GET"
	rest := query
	if m, after, found := strings.Cut(query, " "); found && isHTTPMethod(m) {
		method = m
		rest = after
	}

	path, body, _ := strings.Cut(rest, " ")

	client := resty.New()
	req := client.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if body != "" {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, strings.TrimRight(base, "/")+"/"+strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	return string(resp.Body()), nil
}

func isHTTPMethod(s string) bool {
	switch strings.ToUpper(s) {
	case "GET", "POST", "PUT", "DELETE", "HEAD":
		return true
	default:
		return false
	}
}
