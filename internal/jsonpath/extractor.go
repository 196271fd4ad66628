// Package jsonpath implements a small dotted/bracketed path grammar:
// optional leading $ or $., segments joined by ., each segment a field name
// or name[index], plus the pseudo-segments length() and size(). It never
// returns an error to the caller — missing nodes, wrong types, parse
// failures, and out-of-range indices all yield "".
//
// A general-purpose library (gjson, PaesslerAG/jsonpath) could answer
// simple dotted lookups, but none implement this exact grammar's
// length()/size() pseudo-segments (character length for strings,
// element count for arrays/objects) with empty-string-on-error
// semantics, so the walk is hand-rolled over encoding/json.
package jsonpath

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Extract navigates doc (a JSON document) by path and returns the
// stringified terminal value, or "" on any failure.
func Extract(doc string, path string) string {
	var root interface{}
	if err := json.Unmarshal([]byte(doc), &root); err != nil {
		return ""
	}

	segments := splitPath(path)
	node := root
	for _, seg := range segments {
		next, ok := descend(node, seg)
		if !ok {
			return ""
		}
		node = next
	}

	return stringify(node)
}

func splitPath(path string) []string {
	p := strings.TrimPrefix(path, "$.")
	p = strings.TrimPrefix(p, "$")
	p = strings.TrimPrefix(p, ".")
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// descend resolves one path segment, which may carry a bracket index
// (name[index]) or be a bare pseudo-segment (length()/size()).
func descend(node interface{}, seg string) (interface{}, bool) {
	field, index, hasIndex := splitSegment(seg)

	if field == "length()" || field == "size()" {
		return sizeOf(node), true
	}

	var current interface{} = node
	if field != "" {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		val, exists := obj[field]
		if !exists {
			return nil, false
		}
		current = val
	}

	if hasIndex {
		arr, ok := current.([]interface{})
		if !ok {
			return nil, false
		}
		if index < 0 || index >= len(arr) {
			return nil, false
		}
		current = arr[index]
	}

	return current, true
}

// splitSegment parses "name[idx]" into ("name", idx, true), "name" into
// ("name", 0, false), and "[idx]" into ("", idx, true).
func splitSegment(seg string) (field string, index int, hasIndex bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, 0, false
	}
	closeIdx := strings.IndexByte(seg, ']')
	if closeIdx < open {
		return seg, 0, false
	}
	field = seg[:open]
	idxStr := seg[open+1 : closeIdx]
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return field, 0, false
	}
	return field, idx, true
}

func sizeOf(node interface{}) interface{} {
	switch v := node.(type) {
	case []interface{}:
		return float64(len(v))
	case map[string]interface{}:
		return float64(len(v))
	case string:
		return float64(utf8.RuneCountInString(v))
	default:
		return nil
	}
}

// stringify renders a terminal JSON node the way extracted variables and
// assertion comparisons expect: numbers/booleans in their textual form,
// null as "", strings verbatim, objects/arrays as compact JSON.
func stringify(node interface{}) string {
	switch v := node.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
