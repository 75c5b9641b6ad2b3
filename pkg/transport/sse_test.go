package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/permissions"
)

func TestSSESetupConfiguresContainer(t *testing.T) {
	rt := newStubRuntime()
	tr := NewSSETransport("localhost", freePort(t), 9000, rt, false)

	envVars := map[string]string{}
	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, envVars, map[string]string{},
		permissions.BuiltinNetworkProfile(),
	)
	require.NoError(t, err)

	assert.False(t, rt.createdOptions.AttachStdio)
	assert.Equal(t, "sse", rt.createdEnv["MCP_TRANSPORT"])
	assert.Equal(t, "9000", rt.createdEnv["MCP_PORT"])
	assert.Equal(t, "9000", rt.createdEnv["PORT"])
	assert.Equal(t, "true", rt.createdEnv["MCP_SSE_ENABLED"])

	assert.Contains(t, rt.createdOptions.ExposedPorts, "9000/tcp")
	bindings := rt.createdOptions.PortBindings["9000/tcp"]
	require.Len(t, bindings, 1)
	assert.Equal(t, "9000", bindings[0].HostPort)
}

func TestSSESetupForcesBridgeNetwork(t *testing.T) {
	rt := newStubRuntime()
	tr := NewSSETransport("localhost", freePort(t), 9000, rt, false)

	// A restricted profile compiles to no network, but an SSE server is
	// unreachable without one.
	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, map[string]string{}, map[string]string{},
		permissions.BuiltinStdioProfile(),
	)
	require.NoError(t, err)

	assert.Equal(t, container.NetworkModeBridge, rt.createdConfig.NetworkMode)
}

func TestSSETransportProxiesToContainer(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "backend saw %s", r.URL.Path)
	}))
	defer backend.Close()

	backendURL, err := url.Parse(backend.URL)
	require.NoError(t, err)
	targetPort, err := strconv.Atoi(backendURL.Port())
	require.NoError(t, err)

	rt := newStubRuntime()
	rt.ip = backendURL.Hostname()

	proxyPort := freePort(t)
	tr := NewSSETransport("localhost", proxyPort, targetPort, rt, false)

	err = tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, map[string]string{}, map[string]string{},
		permissions.BuiltinNetworkProfile(),
	)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() {
		_ = tr.Stop(context.Background())
	})

	waitForProxy(t, proxyPort)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/sse", proxyPort))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "backend saw /sse", string(body))
}

func TestSSEStopIsIdempotentAndCleansUp(t *testing.T) {
	rt := newStubRuntime()
	tr := NewSSETransport("localhost", freePort(t), 9000, rt, false)

	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, map[string]string{}, map[string]string{},
		permissions.BuiltinNetworkProfile(),
	)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	require.NoError(t, tr.Stop(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))

	assert.Equal(t, []string{"stub-test-server"}, rt.stoppedContainers())
	assert.Equal(t, []string{"stub-test-server"}, rt.removedContainers())

	running, err := tr.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestSSETransportDefaults(t *testing.T) {
	tr := NewSSETransport("", 4444, 0, nil, false)
	assert.Equal(t, TransportTypeSSE, tr.Mode())
	assert.Equal(t, 4444, tr.Port())
	assert.Equal(t, "localhost", tr.host)
	assert.Equal(t, DefaultTargetPort, tr.targetPort)
}
