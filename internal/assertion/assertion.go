// Package assertion implements the comparison operators shared by
// verification assertions and response validations: EQUALS,
// NOT_EQUALS, CONTAINS, NOT_CONTAINS, REGEX, GT, LT, GTE, LTE, EXISTS,
// NOT_EXISTS. Ordering comparisons try a numeric parse first on both
// sides and fall back to lexical ordering when either side isn't
// numeric.
package assertion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/santhoshkumr96/orchestapi/internal/domain/suite"
)

// Evaluate applies op to actual (the extracted value, "" meaning absent)
// against expected.
func Evaluate(op suite.AssertOperator, actual string, expected string) bool {
	switch op {
	case suite.OpEquals:
		return actual == expected
	case suite.OpNotEquals:
		return actual != expected
	case suite.OpContains:
		return strings.Contains(actual, expected)
	case suite.OpNotContain:
		return !strings.Contains(actual, expected)
	case suite.OpRegex:
		re, err := regexp.Compile(expected)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	case suite.OpGT:
		return compare(actual, expected) > 0
	case suite.OpLT:
		return compare(actual, expected) < 0
	case suite.OpGTE:
		return compare(actual, expected) >= 0
	case suite.OpLTE:
		return compare(actual, expected) <= 0
	case suite.OpExists:
		return actual != ""
	case suite.OpNotExists:
		return actual == ""
	default:
		return false
	}
}

// compare orders a against b, preferring a numeric comparison when both
// parse as float64 and falling back to lexical ordering otherwise.
func compare(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
