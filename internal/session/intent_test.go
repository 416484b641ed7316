package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestIntentDecoding(t *testing.T) {
	var in Intent
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "set_parameter",
		"node_id": "loop-1",
		"params": {"label": "Items", "topCount": 7}
	}`), &in))

	assert.Equal(t, IntentSetParameter, in.Type)
	params, err := in.ParamValues()
	require.NoError(t, err)
	assert.True(t, params["label"].RawEquals(cty.StringVal("Items")))
	assert.True(t, params["topCount"].RawEquals(cty.NumberIntVal(7)))
}

func TestIntentParamValues(t *testing.T) {
	testCases := []struct {
		name    string
		params  map[string]json.RawMessage
		wantLen int
		wantErr bool
	}{
		{"none", nil, 0, false},
		{"number and string", map[string]json.RawMessage{"index": json.RawMessage(`2`), "label": json.RawMessage(`"x"`)}, 2, false},
		{"broken json", map[string]json.RawMessage{"index": json.RawMessage(`{`)}, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Intent{Params: tc.params}.ParamValues()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadIntent)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.wantLen)
		})
	}
}
