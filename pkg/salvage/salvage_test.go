package salvage

import (
	"encoding/json"
	"testing"

	aierr "Scribeline/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasTitle(obj map[string]any) bool {
	s, ok := obj["title"].(string)
	return ok && s != ""
}

var actionFields = []Field{
	{Name: "title", Kind: String},
	{Name: "description", Kind: String},
	{Name: "priority", Kind: String},
}

func titles(items []map[string]any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it["title"].(string))
	}
	return out
}

func TestObject_EmbeddedInProse(t *testing.T) {
	tests := []struct {
		name     string
		embedded string
		before   string
		after    string
	}{
		{
			name:     "code fence",
			embedded: `{"summary":"ok","score":87,"tags":["a","b"],"nested":{"x":null}}`,
			before:   "Sure! Here is the result:\n```json\n",
			after:    "\n```\nLet me know if you need more.",
		},
		{
			name:     "stray braces around object with inner array",
			embedded: `{"x":[1,{"y":"}"}],"s":"a  b\n"}`,
			before:   "Sure {user}! ",
			after:    " :}",
		},
		{
			name:     "stray braces around nested arrays",
			embedded: `{"nested":{"k":[{"v":"]"}]}}`,
			before:   "Sure {user}! ",
			after:    " :}",
		},
		{
			name:     "stray brackets before object",
			embedded: `{"items":[{"title":"A"}],"total":1}`,
			before:   "See [1] and {note}: ",
			after:    " ] done",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.embedded), &want))

			got, step, err := Object(tt.before+tt.embedded+tt.after, Any)
			require.NoError(t, err)
			assert.Equal(t, StepDirect, step)
			assert.Equal(t, want, got)
		})
	}
}

func TestObject_BalancedSpanSkipsStrayBraces(t *testing.T) {
	got, step, err := Object(`Note {not json} then {"a":1} and a stray }`, Any)
	require.NoError(t, err)
	assert.Equal(t, StepDirect, step)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestObject_BracesInsideStrings(t *testing.T) {
	got, _, err := Object(`prefix {"text":"a } b"} suffix }`, Any)
	require.NoError(t, err)
	assert.Equal(t, "a } b", got["text"])
}

func TestObject_CleansTrailingCommasAndControlChars(t *testing.T) {
	got, _, err := Object("{\"title\":\"line1\nline2\",\"tags\":[1,2,],}", hasTitle)
	require.NoError(t, err)
	assert.Equal(t, "line1 line2", got["title"])
	assert.Equal(t, []any{float64(1), float64(2)}, got["tags"])
}

func TestObject_FirstValidElementOfArray(t *testing.T) {
	got, _, err := Object(`[{"name":"x"},{"title":"T"}]`, hasTitle)
	require.NoError(t, err)
	assert.Equal(t, "T", got["title"])
}

func TestObject_FieldExtraction(t *testing.T) {
	text := `the model said "summary": "all good", and "score": 42 but forgot braces`
	got, step, err := Object(text, Any,
		Field{Name: "summary", Kind: String},
		Field{Name: "score", Kind: Number},
		Field{Name: "tags", Kind: Array},
	)
	require.NoError(t, err)
	assert.Equal(t, StepFields, step)
	assert.Equal(t, "all good", got["summary"])
	assert.Equal(t, float64(42), got["score"])
	assert.Equal(t, []any{}, got["tags"])
}

func TestObject_ValidatorRejectsEverything(t *testing.T) {
	_, step, err := Object(`{"a":1}`, hasTitle)
	require.Error(t, err)
	assert.Equal(t, StepNone, step)
	assert.True(t, aierr.IsCategory(err, aierr.CategoryParseFailure))
}

func TestObject_NoStructure(t *testing.T) {
	_, _, err := Object("I'm sorry, I cannot help with that.", Any)
	require.Error(t, err)
	assert.True(t, aierr.IsCategory(err, aierr.CategoryParseFailure))
}

func TestItems_WellFormedArray(t *testing.T) {
	items, step := Items(`[{"title":"A"},{"title":"B"}]`, hasTitle)
	assert.Equal(t, StepDirect, step)
	assert.Equal(t, []string{"A", "B"}, titles(items))
}

func TestItems_ValidatorFilters(t *testing.T) {
	items, _ := Items(`[{"title":"A"},{"name":"x"},{"title":""}]`, hasTitle)
	assert.Equal(t, []string{"A"}, titles(items))
}

func TestItems_ObjectHoldingArray(t *testing.T) {
	items, step := Items(`{"action_items":[{"title":"A"},{"title":"B"}]}`, hasTitle)
	assert.Equal(t, StepDirect, step)
	assert.Equal(t, []string{"A", "B"}, titles(items))
}

func TestItems_ExplicitlyEmpty(t *testing.T) {
	items, step := Items("```json\n[]\n```", hasTitle)
	assert.Equal(t, StepDirect, step)
	assert.Empty(t, items)

	items, step = Items(`{"action_items": []}`, hasTitle)
	assert.Equal(t, StepDirect, step)
	assert.Empty(t, items)
}

func TestItems_ConcatenatedObjects(t *testing.T) {
	items, step := Items(`{ "title": "A", "description": "B" }, { "title": "C", "description": "D" }`, hasTitle)
	assert.Equal(t, StepWrapped, step)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"A", "C"}, titles(items))
	assert.Equal(t, "B", items[0]["description"])
	assert.Equal(t, "D", items[1]["description"])
}

func TestItems_ConcatenatedWithoutCommas(t *testing.T) {
	items, step := Items("{\"title\":\"A\"}\n{\"title\":\"B\"}", hasTitle)
	assert.Equal(t, StepWrapped, step)
	assert.Equal(t, []string{"A", "B"}, titles(items))
}

func TestItems_Fragments(t *testing.T) {
	items, step := Items(`{"title":"A"}, {"title":"B" garbage}, {"title":"C"}`, hasTitle)
	assert.Equal(t, StepFragments, step)
	assert.Equal(t, []string{"A", "C"}, titles(items))
}

func TestItems_FieldExtraction(t *testing.T) {
	text := `Action items: "title": "Fix login", "priority": "high"; "title": "Write docs", "description": "for the API"`
	items, step := Items(text, hasTitle, actionFields...)

	assert.Equal(t, StepFields, step)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"title": "Fix login", "description": "", "priority": "high"}, items[0])
	assert.Equal(t, map[string]any{"title": "Write docs", "description": "for the API", "priority": ""}, items[1])
}

func TestItems_NothingRecoverable(t *testing.T) {
	items, step := Items("no structured content at all", hasTitle, actionFields...)
	assert.Equal(t, StepNone, step)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing comma in object", `{"a":1,}`, `{"a":1}`},
		{"trailing comma in array", `[1, 2 , ]`, `[1, 2 ]`},
		{"control chars", "{\"a\":\"x\ty\"}", `{"a":"x y"}`},
		{"whitespace runs", "{  \"a\" :\n\n 1 }", `{ "a" : 1 }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestMatchingClose(t *testing.T) {
	assert.Equal(t, 6, matchingClose(`{"a":1} tail`, 0))
	assert.Equal(t, -1, matchingClose(`{"a":[1}`, 0))
	assert.Equal(t, -1, matchingClose(`{"a":1`, 0))
	assert.Equal(t, 10, matchingClose(`{"a":"\"}"} }`, 0))
}
