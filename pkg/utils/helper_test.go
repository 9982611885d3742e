package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleParams struct {
	Key    string `url:"key"`
	ID     string `url:"id"`
	JSON   int    `url:"json"`
	Action string `url:"action,omitempty"`
}

func TestEncodeURLParams(t *testing.T) {
	t.Parallel()

	q, err := EncodeURLParams(sampleParams{Key: "k", ID: "7", JSON: 1})
	require.NoError(t, err)
	assert.Equal(t, "id=7&json=1&key=k", q)

	_, err = EncodeURLParams("not a struct")
	require.Error(t, err)
}

func TestBeautifyJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{\n  \"a\": 1\n}", BeautifyJSON([]byte(`{"a":1}`)))
	assert.Equal(t, "plain text", BeautifyJSON([]byte("plain text")))
}

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", TruncateForLog("abcdef", 3))
	assert.Equal(t, "abc", TruncateForLog("abc", 10))
	assert.Equal(t, "abc", TruncateForLog("abc", 0))
}
