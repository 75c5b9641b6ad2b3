package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransportType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    TransportType
		wantErr bool
	}{
		{input: "stdio", want: TransportTypeStdio},
		{input: "STDIO", want: TransportTypeStdio},
		{input: "sse", want: TransportTypeSSE},
		{input: "SSE", want: TransportTypeSSE},
		{input: "websocket", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run("input "+tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTransportType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedTransport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactoryCreate(t *testing.T) {
	t.Parallel()

	factory := NewFactory()

	t.Run("stdio", func(t *testing.T) {
		t.Parallel()
		tr, err := factory.Create(Config{Type: TransportTypeStdio, Port: 5000})
		require.NoError(t, err)
		assert.IsType(t, &StdioTransport{}, tr)
		assert.Equal(t, TransportTypeStdio, tr.Mode())
		assert.Equal(t, 5000, tr.Port())
	})

	t.Run("sse", func(t *testing.T) {
		t.Parallel()
		tr, err := factory.Create(Config{Type: TransportTypeSSE, Port: 5000, TargetPort: 9000, Host: "localhost"})
		require.NoError(t, err)
		assert.IsType(t, &SSETransport{}, tr)
		assert.Equal(t, TransportTypeSSE, tr.Mode())
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		_, err := factory.Create(Config{Type: "websocket"})
		assert.ErrorIs(t, err, ErrUnsupportedTransport)
	})
}
