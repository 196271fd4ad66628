// Package validation implements the four response-validation kinds:
// HEADER, BODY_EXACT_MATCH, BODY_FIELD, and BODY_DATA_TYPE.
// It runs after variable extraction and before verification, against the
// raw HTTP response (headers + body string).
package validation

import (
	"encoding/json"
	"strings"

	"github.com/santhoshkumr96/orchestapi/internal/assertion"
	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
	"github.com/santhoshkumr96/orchestapi/internal/jsonpath"
)

// Response is the subset of an HTTP response a validation inspects.
type Response struct {
	Headers map[string]string // case preserved as received
	Body    string
}

// Header looks up a header by case-insensitive name.
func (r Response) Header(name string) (string, bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Result is the outcome of one ResponseValidation.
type Result struct {
	Passed bool
	Detail string
}

// Run evaluates v against resp.
func Run(v suite.ResponseValidation, resp Response) Result {
	switch v.Type {
	case suite.ValidationHeader:
		return runHeader(v, resp)
	case suite.ValidationBodyExact:
		return runBodyExact(v, resp)
	case suite.ValidationBodyField:
		return runBodyField(v, resp)
	case suite.ValidationBodyDataType:
		return runBodyDataType(v, resp)
	default:
		return Result{Passed: false, Detail: "unknown validation type " + string(v.Type)}
	}
}

func runHeader(v suite.ResponseValidation, resp Response) Result {
	actual, _ := resp.Header(v.HeaderName)
	if assertion.Evaluate(v.Operator, actual, v.ExpectedValue) {
		return Result{Passed: true}
	}
	return Result{Passed: false, Detail: "header \"" + v.HeaderName + "\" value \"" + actual + "\" failed " + string(v.Operator) + " \"" + v.ExpectedValue + "\""}
}

func runBodyField(v suite.ResponseValidation, resp Response) Result {
	actual := jsonpath.Extract(resp.Body, v.JSONPath)
	if assertion.Evaluate(v.Operator, actual, v.ExpectedValue) {
		return Result{Passed: true}
	}
	return Result{Passed: false, Detail: "field \"" + v.JSONPath + "\" value \"" + actual + "\" failed " + string(v.Operator) + " \"" + v.ExpectedValue + "\""}
}

// runBodyExact implements the three BODY_EXACT_MATCH modes: STRICT
// (structural JSON equality), FLEXIBLE (every key/index present in
// expected must exist and match in actual — actual may be a superset of
// keys; arrays are order-independent but size-equal), and STRUCTURE
// (expected's object keys and array positions must exist in actual,
// values ignored; actual may be a superset).
func runBodyExact(v suite.ResponseValidation, resp Response) Result {
	var actual, expected interface{}
	if err := json.Unmarshal([]byte(resp.Body), &actual); err != nil {
		return Result{Passed: false, Detail: "actual body is not valid JSON"}
	}
	if err := json.Unmarshal([]byte(v.ExpectedBody), &expected); err != nil {
		return Result{Passed: false, Detail: "expected body is not valid JSON"}
	}

	switch v.MatchMode {
	case suite.MatchStructure:
		if sameShape(actual, expected) {
			return Result{Passed: true}
		}
		return Result{Passed: false, Detail: "body structure mismatch"}
	case suite.MatchFlexible:
		if flexibleMatch(actual, expected) {
			return Result{Passed: true}
		}
		return Result{Passed: false, Detail: "body flexible-match mismatch"}
	case suite.MatchStrict, "":
		if deepEqual(actual, expected) {
			return Result{Passed: true}
		}
		return Result{Passed: false, Detail: "body value mismatch"}
	default:
		return Result{Passed: false, Detail: "unknown match mode " + string(v.MatchMode)}
	}
}

// flexibleMatch requires everything declared in expected to exist and
// match in actual. Objects in actual may carry extra keys; arrays must
// have the same length but elements pair up in any order.
func flexibleMatch(actual, expected interface{}) bool {
	switch ev := expected.(type) {
	case map[string]interface{}:
		av, ok := actual.(map[string]interface{})
		if !ok {
			return false
		}
		for k, v := range ev {
			avv, exists := av[k]
			if !exists || !flexibleMatch(avv, v) {
				return false
			}
		}
		return true
	case []interface{}:
		av, ok := actual.([]interface{})
		if !ok || len(av) != len(ev) {
			return false
		}
		used := make([]bool, len(av))
		for _, e := range ev {
			found := false
			for i, a := range av {
				if used[i] || !flexibleMatch(a, e) {
					continue
				}
				used[i] = true
				found = true
				break
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return actual == expected
	}
}

func runBodyDataType(v suite.ResponseValidation, resp Response) Result {
	var doc interface{}
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		return Result{Passed: false, Detail: "body is not valid JSON"}
	}

	segments := splitForLookup(v.JSONPath)
	actual := "MISSING"
	if node, ok := navigate(doc, segments); ok {
		actual = classify(node)
	}

	if strings.EqualFold(actual, v.ExpectedDataType) {
		return Result{Passed: true}
	}
	return Result{Passed: false, Detail: "path \"" + v.JSONPath + "\" is " + actual + ", expected " + v.ExpectedDataType}
}

func classify(node interface{}) string {
	switch node.(type) {
	case nil:
		return "NULL"
	case bool:
		return "BOOLEAN"
	case string:
		return "STRING"
	case float64:
		return "NUMBER"
	case []interface{}:
		return "ARRAY"
	case map[string]interface{}:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

func deepEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, exists := bv[k]
			if !exists || !deepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// sameShape checks structure containment driven by expected: every
// object key and array position declared in expected must exist
// (recursively) in actual; primitive values are never compared and
// actual may carry extra keys or elements beyond expected's shape.
func sameShape(actual, expected interface{}) bool {
	switch ev := expected.(type) {
	case map[string]interface{}:
		av, ok := actual.(map[string]interface{})
		if !ok {
			return false
		}
		for k, v := range ev {
			avv, exists := av[k]
			if !exists || !sameShape(avv, v) {
				return false
			}
		}
		return true
	case []interface{}:
		av, ok := actual.([]interface{})
		if !ok || len(av) < len(ev) {
			return false
		}
		for i := range ev {
			if !sameShape(av[i], ev[i]) {
				return false
			}
		}
		return true
	default:
		_, aIsMap := actual.(map[string]interface{})
		_, aIsArr := actual.([]interface{})
		return !aIsMap && !aIsArr
	}
}

// splitForLookup and navigate re-implement a plain dotted walk (no
// length()/size() pseudo-segments, no bracket indices) because
// BODY_DATA_TYPE classifies the node itself rather than a stringified
// terminal, so it cannot go through jsonpath.Extract.
func splitForLookup(path string) []string {
	p := strings.TrimPrefix(path, "$.")
	p = strings.TrimPrefix(p, "$")
	p = strings.TrimPrefix(p, ".")
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

func navigate(doc interface{}, segments []string) (interface{}, bool) {
	node := doc
	for _, seg := range segments {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		val, exists := obj[seg]
		if !exists {
			return nil, false
		}
		node = val
	}
	return node, true
}
