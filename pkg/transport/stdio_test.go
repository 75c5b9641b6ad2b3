package transport

import (
	"bufio"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/permissions"
)

// stubRuntime is an in-memory runtime for transport tests. Attach returns
// pipes so the test can play the container's side of the conversation.
type stubRuntime struct {
	mutex   sync.Mutex
	running map[string]bool
	stopped []string
	removed []string

	// ip is returned from GetContainerIP; empty means a canned address
	ip string

	createdOptions *container.CreateContainerOptions
	createdEnv     map[string]string
	createdConfig  *container.PermissionConfig

	// Container side of the attached streams
	stdinReader  *io.PipeReader
	stdoutWriter *io.PipeWriter

	// Transport side
	stdinWriter  *io.PipeWriter
	stdoutReader *io.PipeReader
}

func newStubRuntime() *stubRuntime {
	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()
	return &stubRuntime{
		running:      make(map[string]bool),
		stdinReader:  stdinReader,
		stdinWriter:  stdinWriter,
		stdoutReader: stdoutReader,
		stdoutWriter: stdoutWriter,
	}
}

func (s *stubRuntime) CreateContainer(
	_ context.Context,
	_, name string,
	_ []string,
	envVars, _ map[string]string,
	permissionConfig *container.PermissionConfig,
	options *container.CreateContainerOptions,
) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.createdOptions = options
	s.createdEnv = envVars
	s.createdConfig = permissionConfig
	return "stub-" + name, nil
}

func (s *stubRuntime) StartContainer(_ context.Context, containerID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.running[containerID] = true
	return nil
}

func (*stubRuntime) ListContainers(_ context.Context) ([]container.ContainerInfo, error) {
	return nil, nil
}

func (s *stubRuntime) StopContainer(_ context.Context, containerID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.running[containerID] = false
	s.stopped = append(s.stopped, containerID)
	return nil
}

func (s *stubRuntime) RemoveContainer(_ context.Context, containerID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.removed = append(s.removed, containerID)
	return nil
}

func (*stubRuntime) ContainerLogs(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (s *stubRuntime) IsContainerRunning(_ context.Context, containerID string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running[containerID], nil
}

func (s *stubRuntime) GetContainerInfo(_ context.Context, containerID string) (container.ContainerInfo, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	state := "exited"
	if s.running[containerID] {
		state = "running"
	}
	return container.ContainerInfo{ID: containerID, State: state}, nil
}

func (s *stubRuntime) GetContainerIP(_ context.Context, _ string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.ip != "" {
		return s.ip, nil
	}
	return "172.17.0.2", nil
}

func (s *stubRuntime) AttachContainer(_ context.Context, _ string) (io.WriteCloser, io.ReadCloser, error) {
	return s.stdinWriter, s.stdoutReader, nil
}

func (s *stubRuntime) stoppedContainers() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.stopped...)
}

func (s *stubRuntime) removedContainers() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.removed...)
}

// readContainerLine reads one newline-terminated message from the
// container's end of stdin.
func readContainerLine(t *testing.T, reader *bufio.Reader) jsonrpc2.Message {
	t.Helper()

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case res := <-ch:
		require.NoError(t, res.err)
		msg, err := DecodeLine(res.line)
		require.NoError(t, err)
		require.NotNil(t, msg)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for container stdin")
		return nil
	}
}

func startStdioTransport(t *testing.T) (*StdioTransport, *stubRuntime) {
	t.Helper()

	rt := newStubRuntime()
	tr := NewStdioTransport(freePort(t), rt, false)

	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, map[string]string{}, map[string]string{},
		permissions.BuiltinStdioProfile(),
	)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	t.Cleanup(func() {
		_ = tr.Stop(context.Background())
	})

	return tr, rt
}

func TestStdioSetupConfiguresContainer(t *testing.T) {
	rt := newStubRuntime()
	tr := NewStdioTransport(freePort(t), rt, false)

	envVars := map[string]string{}
	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, envVars, map[string]string{},
		permissions.BuiltinStdioProfile(),
	)
	require.NoError(t, err)

	assert.True(t, rt.createdOptions.AttachStdio)
	assert.Equal(t, "stdio", rt.createdEnv["MCP_TRANSPORT"])
	assert.NotContains(t, rt.createdEnv, "MCP_SSE_ENABLED")
	assert.Equal(t, container.NetworkModeNone, rt.createdConfig.NetworkMode)
}

func TestStdioHandshakeOrder(t *testing.T) {
	_, rt := startStdioTransport(t)

	reader := bufio.NewReader(rt.stdinReader)

	first := readContainerLine(t, reader)
	initReq, ok := first.(*jsonrpc2.Request)
	require.True(t, ok, "first message must be a request")
	assert.Equal(t, "initialize", initReq.Method)
	assert.Equal(t, jsonrpc2.StringID("1"), initReq.ID)
	assert.Contains(t, string(initReq.Params), `"protocolVersion":"2024-11-05"`)
	assert.Contains(t, string(initReq.Params), `"name":"vibetool"`)

	second := readContainerLine(t, reader)
	initNotif, ok := second.(*jsonrpc2.Request)
	require.True(t, ok)
	assert.False(t, initNotif.IsCall(), "second message must be a notification")
	assert.Equal(t, "notifications/initialized", initNotif.Method)
}

func TestStdioForwardsContainerOutput(t *testing.T) {
	tr, rt := startStdioTransport(t)

	// Swallow the handshake so the pipe doesn't block
	reader := bufio.NewReader(rt.stdinReader)
	readContainerLine(t, reader)
	readContainerLine(t, reader)

	// Register the pending request so the reply has a destination
	proxy, ok := tr.httpProxy.(*HTTPSSEProxy)
	require.True(t, ok)
	proxy.RegisterPendingRequest(jsonrpc2.StringID("9"), "session-x")

	// Container emits a reply split across two writes
	line := `{"jsonrpc":"2.0","id":"9","result":{"ok":true}}` + "\n"
	_, err := rt.stdoutWriter.Write([]byte(line[:10]))
	require.NoError(t, err)
	_, err = rt.stdoutWriter.Write([]byte(line[10:]))
	require.NoError(t, err)

	// The reply lands in the pending queue because session-x never connected
	require.Eventually(t, func() bool {
		proxy.pendingMutex.Lock()
		defer proxy.pendingMutex.Unlock()
		return len(proxy.pendingMessages) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStdioStopIsIdempotentAndCleansUp(t *testing.T) {
	tr, rt := startStdioTransport(t)

	require.NoError(t, tr.Stop(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))

	assert.Equal(t, []string{"stub-test-server"}, rt.stoppedContainers())
	assert.Equal(t, []string{"stub-test-server"}, rt.removedContainers())

	running, err := tr.IsRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)
}

func TestStdioDebugModeKeepsContainer(t *testing.T) {
	rt := newStubRuntime()
	tr := NewStdioTransport(freePort(t), rt, true)

	err := tr.Setup(
		context.Background(), nil, "test-server", "example/image:latest",
		nil, map[string]string{}, map[string]string{},
		permissions.BuiltinStdioProfile(),
	)
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))

	require.NoError(t, tr.Stop(context.Background()))

	assert.Equal(t, []string{"stub-test-server"}, rt.stoppedContainers())
	assert.Empty(t, rt.removedContainers())
}
