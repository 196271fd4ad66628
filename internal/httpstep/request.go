// Package httpstep assembles and dispatches one step's HTTP request:
// URL assembly against the environment's base URL, header layering
// (environment defaults overridden by step headers), body assembly for
// NONE/JSON/FORM_DATA (including file parts pulled from the
// environment's file assets), and dispatch via resty.
package httpstep

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/placeholder"
)

// fileRefPattern matches a form-data field value of the form
// "${FILE:key}", which short-circuits placeholder
// resolution even when the field wasn't explicitly declared type="file".
var fileRefPattern = regexp.MustCompile(`^\$\{FILE:([^}]+)\}$`)

// Request is a fully-resolved, ready-to-send HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    string // informational: the resolved JSON body; empty for NONE and FORM_DATA
}

// Response is the result of dispatching a Request.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Resolver narrows placeholder.Resolve to what Build needs, so tests can
// supply a stub instead of a real Environment/extracted-variable map.
type Resolver func(text string) string

// Build resolves a step's URL, headers, query params, and body against
// env/extracted/manualInputs, layering environment default headers under
// step-declared headers. extracted is consulted by VARIABLE-typed
// default headers whose name isn't an environment variable.
func Build(step suite.TestStep, env *suite.Environment, extracted map[string]string, resolve Resolver) Request {
	req := Request{
		Method:  step.Method,
		URL:     assembleURL(step, env, resolve),
		Headers: assembleHeaders(step, env, extracted, resolve),
		Query:   assembleQuery(step, resolve),
	}

	switch step.BodyType {
	case suite.BodyJSON:
		req.Body = resolve(step.Body)
	case suite.BodyFormData:
		req.Body = "" // multipart parts are attached directly in Dispatch
	}

	return req
}

// assembleURL resolves the step URL template; a resolved URL starting
// with "/" is joined onto the environment's base URL (one trailing "/"
// stripped), anything else is used as-is.
func assembleURL(step suite.TestStep, env *suite.Environment, resolve Resolver) string {
	url := resolve(step.URL)
	if strings.HasPrefix(url, "/") && env != nil && env.BaseURL != "" {
		return strings.TrimSuffix(env.BaseURL, "/") + url
	}
	return url
}

func assembleHeaders(step suite.TestStep, env *suite.Environment, extracted map[string]string, resolve Resolver) map[string]string {
	headers := make(map[string]string)

	if env != nil {
		disabled := make(map[string]bool, len(step.DisabledDefaultHdrs))
		for _, k := range step.DisabledDefaultHdrs {
			disabled[strings.ToLower(k)] = true
		}
		for _, h := range env.DefaultHeaders {
			if disabled[strings.ToLower(h.Key)] {
				continue
			}
			headers[h.Key] = resolveDefaultHeader(h, env, extracted, resolve)
		}
	}

	for _, h := range step.Headers {
		headers[h.Key] = resolve(h.Value)
	}

	return headers
}

// resolveDefaultHeader produces an environment default header's value
// according to its ValueType: STATIC resolves the literal, VARIABLE
// looks the name up among the environment's variables (falling back to
// the extracted-variable namespace, then the literal name), UUID and
// ISO_TIMESTAMP generate fresh values.
func resolveDefaultHeader(h suite.DefaultHeader, env *suite.Environment, extracted map[string]string, resolve Resolver) string {
	switch h.ValueType {
	case suite.ValueUUID:
		return uuid.NewString()
	case suite.ValueISOTimestamp:
		return time.Now().UTC().Format(time.RFC3339)
	case suite.ValueVariable:
		if v, ok := env.Variable(h.Value); ok {
			return placeholder.RenderValue(v.ValueType, v.Value)
		}
		if v, ok := extracted[h.Value]; ok {
			return v
		}
		return h.Value
	default:
		return resolve(h.Value)
	}
}

func assembleQuery(step suite.TestStep, resolve Resolver) map[string]string {
	if len(step.QueryParams) == 0 {
		return nil
	}
	q := make(map[string]string, len(step.QueryParams))
	for _, p := range step.QueryParams {
		q[p.Key] = resolve(p.Value)
	}
	return q
}

// NewResolver binds placeholder.Resolve's remaining arguments into a
// single-argument Resolver for Build.
func NewResolver(env *suite.Environment, extracted map[string]string, manualInputs map[string]string, warn placeholder.WarningSink) Resolver {
	return func(text string) string {
		return placeholder.Resolve(text, env, extracted, manualInputs, warn)
	}
}

// Dispatch sends req via resty. FORM_DATA steps attach step.FormFields as
// multipart parts (resolving each field's value, and pulling file bytes
// from env.File for fields of type "file"); JSON steps send
// req.Body directly.
func Dispatch(ctx context.Context, client *resty.Client, step suite.TestStep, env *suite.Environment, req Request, resolve Resolver) (Response, error) {
	r := client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	for k, v := range req.Query {
		r.SetQueryParam(k, v)
	}

	switch step.BodyType {
	case suite.BodyJSON:
		if !headerPresent(req.Headers, "Content-Type") {
			r.SetHeader("Content-Type", "application/json")
		}
		r.SetBody(req.Body)
	case suite.BodyFormData:
		attachFormFields(r, step, env, resolve)
	}

	resp, err := r.Execute(step.Method, req.URL)
	if err != nil {
		return Response{}, err
	}

	headers := make(map[string]string, len(resp.Header()))
	for k, vs := range resp.Header() {
		headers[k] = strings.Join(vs, ", ")
	}

	return Response{
		StatusCode: resp.StatusCode(),
		Headers:    headers,
		Body:       string(resp.Body()),
	}, nil
}

func headerPresent(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// attachFormFields emits one multipart part per declared form field.
// A field is a file part when its Type is "file" or its
// (unresolved) value matches the literal "${FILE:key}" reference form;
// either way the key it names is looked up in the environment's file
// assets. Every other field is placeholder-resolved and emitted as text.
func attachFormFields(r *resty.Request, step suite.TestStep, env *suite.Environment, resolve Resolver) {
	for _, f := range step.FormFields {
		fileKey, isFile := fileFieldKey(f)
		if isFile {
			if env != nil {
				if asset, ok := env.File(fileKey); ok {
					r.SetFileReader(f.Name, asset.Filename, strings.NewReader(string(asset.Bytes)))
				}
			}
			continue
		}
		r.SetFormData(map[string]string{f.Name: resolve(f.Value)})
	}
}

// fileFieldKey reports the environment fileKey a form field references,
// either because it was declared Type="file" (value is the key directly)
// or because its literal value is the "${FILE:key}" short-circuit form.
func fileFieldKey(f suite.FormField) (string, bool) {
	if f.Type == "file" {
		return f.Value, true
	}
	if m := fileRefPattern.FindStringSubmatch(f.Value); m != nil {
		return m[1], true
	}
	return "", false
}
