package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/environment"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/permissions"
)

// localhost is where both proxies bind by default. There is no TLS
// termination, so anything beyond loopback needs explicit configuration.
const localhost = "127.0.0.1"

// StdioTransport implements the Transport interface using standard input/output.
// It acts as a proxy between the MCP client and the container's stdin/stdout,
// exposing an HTTP+SSE surface on the host port.
type StdioTransport struct {
	port          int
	runtime       container.Runtime
	debug         bool
	containerID   string
	containerName string

	// Mutex for protecting shared state
	mutex sync.Mutex

	// Channels for communication
	shutdownCh chan struct{}
	errorCh    <-chan error

	// HTTP SSE proxy
	httpProxy Proxy

	// Container I/O
	stdin  io.WriteCloser
	stdout io.ReadCloser

	// Container monitor
	monitor *container.Monitor
}

// NewStdioTransport creates a new stdio transport. The transport owns its
// runtime from construction; there is no post-hoc injection.
func NewStdioTransport(port int, rt container.Runtime, debug bool) *StdioTransport {
	return &StdioTransport{
		port:       port,
		runtime:    rt,
		debug:      debug,
		shutdownCh: make(chan struct{}),
	}
}

// Mode returns the transport mode.
func (*StdioTransport) Mode() TransportType {
	return TransportTypeStdio
}

// Port returns the port used by the transport.
func (t *StdioTransport) Port() int {
	return t.port
}

// Setup prepares the transport for use with a specific container.
func (t *StdioTransport) Setup(
	ctx context.Context,
	runtime container.Runtime,
	containerName string,
	image string,
	cmdArgs []string,
	envVars, labels map[string]string,
	permissionProfile *permissions.Profile,
) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if runtime != nil {
		t.runtime = runtime
	}
	if t.runtime == nil {
		return ErrRuntimeNotSet
	}
	t.containerName = containerName

	permissionConfig, err := container.NewPermissionConfigFromProfile(permissionProfile)
	if err != nil {
		return fmt.Errorf("failed to compile permission profile: %w", err)
	}

	environment.SetTransportEnvironmentVariables(envVars, string(TransportTypeStdio), t.port)

	options := container.NewCreateContainerOptions()
	options.AttachStdio = true

	containerID, err := t.runtime.CreateContainer(
		ctx, image, containerName, cmdArgs, envVars, labels, permissionConfig, options)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	t.containerID = containerID

	logger.Infof("Created container %s (%s)", containerName, containerID)

	return nil
}

// Start starts the container, attaches to its stdio, and begins
// processing messages through the HTTP SSE proxy.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.containerID == "" {
		return ErrContainerIDNotSet
	}

	if t.containerName == "" {
		return ErrContainerNameNotSet
	}

	if err := t.runtime.StartContainer(ctx, t.containerID); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	var err error
	t.stdin, t.stdout, err = t.runtime.AttachContainer(ctx, t.containerID)
	if err != nil {
		return fmt.Errorf("failed to attach to container: %w", err)
	}

	proxy := NewHTTPSSEProxy(localhost, t.port, t.containerName)
	if err := proxy.Start(ctx); err != nil {
		return err
	}
	t.httpProxy = proxy

	// Start processing messages in a goroutine
	go t.processMessages(ctx, t.stdin, t.stdout)

	// Initialize the MCP session on behalf of the managing process
	go func() {
		if err := sendInitializeHandshake(ctx, t.httpProxy); err != nil {
			logger.Errorf("Failed to send initialize handshake: %v", err)
		}
	}()

	// Monitor the container for unexpected exits
	t.monitor = container.NewMonitor(t.runtime, t.containerID, t.containerName)
	t.errorCh, err = t.monitor.StartMonitoring(ctx)
	if err != nil {
		return fmt.Errorf("failed to start container monitoring: %w", err)
	}
	go t.handleContainerExit(ctx)

	return nil
}

// Stop gracefully shuts down the transport and the container.
// It is safe to call Stop more than once.
func (t *StdioTransport) Stop(ctx context.Context) error {
	// Check without the lock first so concurrent callers don't deadlock
	select {
	case <-t.shutdownCh:
		return nil
	default:
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	// Check again after locking to handle the race
	select {
	case <-t.shutdownCh:
		return nil
	default:
		close(t.shutdownCh)
	}

	if t.monitor != nil {
		t.monitor.StopMonitoring()
		t.monitor = nil
	}

	if t.httpProxy != nil {
		if err := t.httpProxy.Stop(ctx); err != nil {
			logger.Warnf("Failed to stop HTTP proxy: %v", err)
		}
	}

	if t.stdin != nil {
		// Write errors during shutdown are expected when the container
		// is already gone.
		if err := t.stdin.Close(); err != nil {
			logger.Debugf("Failed to close container stdin: %v", err)
		}
		t.stdin = nil
	}

	if t.runtime != nil && t.containerID != "" {
		if err := t.runtime.StopContainer(ctx, t.containerID); err != nil {
			logger.Warnf("Failed to stop container: %v", err)
		}

		if t.debug {
			logger.Infof("Debug mode enabled, container %s not removed", t.containerName)
		} else if err := t.runtime.RemoveContainer(ctx, t.containerID); err != nil {
			logger.Warnf("Failed to remove container: %v", err)
		}
	}

	return nil
}

// IsRunning checks if the transport is currently running.
func (t *StdioTransport) IsRunning(_ context.Context) (bool, error) {
	select {
	case <-t.shutdownCh:
		return false, nil
	default:
		return true, nil
	}
}

// processMessages handles the message exchange between the client and container.
func (t *StdioTransport) processMessages(ctx context.Context, stdin io.Writer, stdout io.ReadCloser) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Turn the shutdown signal into a context cancellation
	go func() {
		select {
		case <-t.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Pump: container stdout -> classify -> route to SSE clients
	go t.processStdout(ctx, stdout)

	// Drain: single writer pulling queued messages onto container stdin
	messageCh := t.httpProxy.GetMessageChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-messageCh:
			if err := t.sendMessageToContainer(stdin, msg); err != nil {
				logger.Errorf("Error sending message to container: %v", err)
			}
		}
	}
}

// processStdout reads from the container's stdout and processes JSON-RPC messages.
func (t *StdioTransport) processStdout(ctx context.Context, stdout io.ReadCloser) {
	// Buffer for accumulating incomplete lines
	var buffer bytes.Buffer

	readBuffer := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			n, err := stdout.Read(readBuffer)
			if err != nil {
				if err == io.EOF {
					logger.Info("Container stdout closed")
				} else {
					logger.Errorf("Error reading from container stdout: %v", err)
				}
				return
			}

			if n > 0 {
				buffer.Write(readBuffer[:n])
				t.processBuffer(ctx, &buffer)
			}
		}
	}
}

// processBuffer processes the complete lines accumulated in the buffer.
// Partial trailing data is retained until more bytes arrive.
func (t *StdioTransport) processBuffer(ctx context.Context, buffer *bytes.Buffer) {
	for {
		line, err := buffer.ReadString('\n')
		if err == io.EOF {
			// No complete line found, put the data back in the buffer
			buffer.WriteString(line)
			break
		}

		// Remove the trailing newline
		line = line[:len(line)-1]

		if line != "" {
			t.parseAndForwardJSONRPC(ctx, line)
		}
	}
}

// parseAndForwardJSONRPC parses a line as a JSON-RPC message and forwards it
// to the SSE clients. A malformed line is logged and dropped.
func (t *StdioTransport) parseAndForwardJSONRPC(ctx context.Context, line string) {
	logger.Debugf("JSON-RPC raw: %s", line)

	msg, err := DecodeLine(line)
	if err != nil {
		logger.Errorf("Error parsing JSON-RPC message: %v", err)
		return
	}
	if msg == nil {
		// Nothing resembling a JSON object on this line
		return
	}

	LogMessage(msg)

	if err := t.httpProxy.ForwardResponseToClients(ctx, msg); err != nil {
		logger.Errorf("Error forwarding to SSE clients: %v", err)
	}
}

// sendMessageToContainer writes a JSON-RPC message to the container's stdin.
func (*StdioTransport) sendMessageToContainer(stdin io.Writer, msg jsonrpc2.Message) error {
	data, err := EncodeLine(msg)
	if err != nil {
		return err
	}

	if _, err := stdin.Write(data); err != nil {
		return fmt.Errorf("failed to write to container stdin: %w", err)
	}

	return nil
}

// handleContainerExit shuts the transport down when the monitor reports
// that the container exited.
func (t *StdioTransport) handleContainerExit(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-t.shutdownCh:
		return
	case err, ok := <-t.errorCh:
		if !ok {
			return
		}
		logger.Errorf("Container %s exited: %v", t.containerName, err)
		if stopErr := t.Stop(ctx); stopErr != nil {
			logger.Errorf("Error stopping transport after container exit: %v", stopErr)
		}
	}
}
