package bodyfilter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterPrivate_StripsNestedUnderscoreKeys(t *testing.T) {
	input := []byte(`{"model":"x","_debug":true,"messages":[{"role":"user","content":"hi","_trace":"t1"}],"metadata":{"u":"1","_secret":"s"}}`)

	var parsed any
	require.NoError(t, json.Unmarshal(input, &parsed))

	filtered := FilterPrivate(parsed)

	out, err := json.Marshal(filtered)
	require.NoError(t, err)

	var got, want any
	require.NoError(t, json.Unmarshal(out, &got))
	require.NoError(t, json.Unmarshal([]byte(`{"model":"x","messages":[{"role":"user","content":"hi"}],"metadata":{"u":"1"}}`), &want))

	require.Equal(t, want, got)
}

func TestFilterPrivate_LeavesCleanBodyUnchanged(t *testing.T) {
	input := map[string]any{"a": 1.0, "b": []any{"x", "y"}}

	require.Equal(t, input, FilterPrivate(input))
}
