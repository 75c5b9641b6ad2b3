package networking

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// occupyPort binds a loopback listener and returns its port, keeping the
// listener open until the test ends.
func occupyPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	return listener.Addr().(*net.TCPAddr).Port
}

func TestIsAvailable(t *testing.T) {
	t.Parallel()

	t.Run("free port", func(t *testing.T) {
		t.Parallel()
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		require.NoError(t, listener.Close())

		assert.True(t, IsAvailable(port))
	})

	t.Run("occupied port", func(t *testing.T) {
		t.Parallel()
		port := occupyPort(t)
		assert.False(t, IsAvailable(port))
	})
}

func TestFindOrUsePort(t *testing.T) {
	t.Parallel()

	t.Run("requested free port is returned unchanged", func(t *testing.T) {
		t.Parallel()
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		require.NoError(t, listener.Close())

		got, err := FindOrUsePort(port)
		require.NoError(t, err)
		assert.Equal(t, port, got)
	})

	t.Run("requested occupied port fails", func(t *testing.T) {
		t.Parallel()
		port := occupyPort(t)

		_, err := FindOrUsePort(port)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "in use")
	})

	t.Run("zero selects a port in the ephemeral range", func(t *testing.T) {
		t.Parallel()
		got, err := FindOrUsePort(0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, MinPort)
		assert.Less(t, got, MaxPort)
	})
}

func TestFindAvailable(t *testing.T) {
	t.Parallel()

	port := FindAvailable()
	require.NotZero(t, port)
	assert.True(t, IsAvailable(port))
}
