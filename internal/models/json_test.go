package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	payload := []byte(`{"type":"applicantReviewed","reviewResult":{"reviewAnswer":"GREEN"},"nested":{"a":[1,2]}}`)

	// Decoding into the column type must terminate and keep the structure.
	var j JSON
	require.NoError(t, json.Unmarshal(payload, &j))
	assert.Equal(t, "applicantReviewed", j["type"])

	out, err := json.Marshal(j)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(out))

	val, err := j.Value()
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(val.([]byte)))
}

func TestJSONScan(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"state":"COMPLETED"}`)))
	assert.Equal(t, "COMPLETED", j["state"])

	// Non-byte values are ignored rather than erroring.
	assert.NoError(t, j.Scan(42))
}

func TestJSONNil(t *testing.T) {
	var j JSON

	out, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	val, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, val)
}
