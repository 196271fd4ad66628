package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractNestedField(t *testing.T) {
	t.Parallel()

	doc := `{"data":{"accessToken":"xyz"}}`
	require.Equal(t, "xyz", Extract(doc, "$.data.accessToken"))
	require.Equal(t, "xyz", Extract(doc, "data.accessToken"))
}

func TestExtractArrayIndex(t *testing.T) {
	t.Parallel()

	doc := `{"items":[{"id":1},{"id":2}]}`
	require.Equal(t, "2", Extract(doc, "$.items[1].id"))
}

func TestExtractLengthOfArray(t *testing.T) {
	t.Parallel()

	doc := `{"items":[1,2,3]}`
	require.Equal(t, "3", Extract(doc, "$.items.length()"))
}

func TestExtractSizeOfObject(t *testing.T) {
	t.Parallel()

	doc := `{"obj":{"a":1,"b":2}}`
	require.Equal(t, "2", Extract(doc, "$.obj.size()"))
}

func TestExtractLengthOfString(t *testing.T) {
	t.Parallel()

	doc := `{"name":"hello"}`
	require.Equal(t, "5", Extract(doc, "$.name.length()"))
}

func TestExtractMissingFieldYieldsEmpty(t *testing.T) {
	t.Parallel()

	doc := `{"a":1}`
	require.Equal(t, "", Extract(doc, "$.b"))
}

func TestExtractOutOfRangeIndexYieldsEmpty(t *testing.T) {
	t.Parallel()

	doc := `{"items":[1]}`
	require.Equal(t, "", Extract(doc, "$.items[5]"))
}

func TestExtractInvalidJSONYieldsEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Extract("not json", "$.a"))
}

func TestExtractNullYieldsEmpty(t *testing.T) {
	t.Parallel()

	doc := `{"a":null}`
	require.Equal(t, "", Extract(doc, "$.a"))
}

func TestExtractNumberTerminalStringifies(t *testing.T) {
	t.Parallel()

	doc := `{"count":42}`
	require.Equal(t, "42", Extract(doc, "$.count"))
}

func TestExtractBooleanTerminalStringifies(t *testing.T) {
	t.Parallel()

	doc := `{"ok":true}`
	require.Equal(t, "true", Extract(doc, "$.ok"))
}

func TestExtractObjectTerminalCompactJSON(t *testing.T) {
	t.Parallel()

	doc := `{"meta":{"a":1}}`
	require.Equal(t, `{"a":1}`, Extract(doc, "$.meta"))
}

func TestExtractWrongTypeYieldsEmpty(t *testing.T) {
	t.Parallel()

	doc := `{"a":"not-an-object"}`
	require.Equal(t, "", Extract(doc, "$.a.b"))
}
