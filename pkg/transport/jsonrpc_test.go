package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/jsonrpc2"
)

func TestDecodeLineClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		line           string
		isRequest      bool
		isResponse     bool
		isNotification bool
	}{
		{
			name:      "request with string id",
			line:      `{"jsonrpc":"2.0","id":"1","method":"initialize","params":{}}`,
			isRequest: true,
		},
		{
			name:      "request with numeric id",
			line:      `{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			isRequest: true,
		},
		{
			name:       "response with result",
			line:       `{"jsonrpc":"2.0","id":"1","result":{"ok":true}}`,
			isResponse: true,
		},
		{
			name:       "response with error",
			line:       `{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"method not found"}}`,
			isResponse: true,
		},
		{
			name:           "notification",
			line:           `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			isNotification: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := DecodeLine(tt.line)
			require.NoError(t, err)
			require.NotNil(t, msg)

			// Exactly one classification holds
			assert.Equal(t, tt.isRequest, IsRequest(msg))
			assert.Equal(t, tt.isResponse, IsResponse(msg))
			assert.Equal(t, tt.isNotification, IsNotification(msg))

			count := 0
			for _, b := range []bool{IsRequest(msg), IsResponse(msg), IsNotification(msg)} {
				if b {
					count++
				}
			}
			assert.Equal(t, 1, count)
		})
	}
}

func TestDecodeLineRejectsMalformed(t *testing.T) {
	t.Parallel()

	t.Run("not json at all", func(t *testing.T) {
		t.Parallel()
		msg, err := DecodeLine("plain log output without braces")
		require.NoError(t, err)
		assert.Nil(t, msg)
	})

	t.Run("json but not json-rpc", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeLine(`{"foo":"bar"}`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestDecodeLineSanitizesBinaryGarbage(t *testing.T) {
	t.Parallel()

	line := "\x00\x01garbage{\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":{}}\x02trailing"
	msg, err := DecodeLine(line)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.True(t, IsResponse(msg))
}

func TestEncodeLineRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := jsonrpc2.NewCall(jsonrpc2.StringID("7"), "tools/list", json.RawMessage(`{"cursor":null}`))
	require.NoError(t, err)

	data, err := EncodeLine(original)
	require.NoError(t, err)

	// Exactly one trailing newline
	require.NotEmpty(t, data)
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.NotContains(t, string(data[:len(data)-1]), "\n")

	decoded, err := DecodeLine(string(data[:len(data)-1]))
	require.NoError(t, err)

	req, ok := decoded.(*jsonrpc2.Request)
	require.True(t, ok)
	assert.Equal(t, original.Method, req.Method)
	assert.Equal(t, original.ID, req.ID)
}

func TestSanitizeJSONString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clean object unchanged",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "garbage around object",
			input: "xx{\"a\":1}yy",
			want:  `{"a":1}`,
		},
		{
			name:  "control characters inside object",
			input: "{\"a\":\x01 1}",
			want:  `{"a": 1}`,
		},
		{
			name:  "no object at all",
			input: "no braces here",
			want:  "",
		},
		{
			name:  "closing brace before opening",
			input: "} nothing {",
			want:  "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeJSONString(tt.input))
		})
	}
}
