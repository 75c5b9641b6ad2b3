package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/environment"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/permissions"
)

// DefaultTargetPort is the container port an SSE server is assumed to
// listen on unless the caller overrides it.
const DefaultTargetPort = 8080

// SSETransport implements the Transport interface for containers that
// expose their own HTTP+SSE server. It runs a transparent reverse proxy
// from the host port to the container.
type SSETransport struct {
	host          string
	port          int
	targetPort    int
	runtime       container.Runtime
	debug         bool
	containerID   string
	containerName string
	containerIP   string

	// Mutex for protecting shared state
	mutex sync.Mutex

	// Transparent proxy
	proxy *TransparentProxy

	// Shutdown channel
	shutdownCh chan struct{}
	errorCh    <-chan error

	// Container monitor
	monitor *container.Monitor
}

// NewSSETransport creates a new SSE transport. The transport owns its
// runtime from construction; there is no post-hoc injection.
func NewSSETransport(host string, port, targetPort int, rt container.Runtime, debug bool) *SSETransport {
	if host == "" {
		host = "localhost"
	}
	if targetPort <= 0 {
		targetPort = DefaultTargetPort
	}

	return &SSETransport{
		host:       host,
		port:       port,
		targetPort: targetPort,
		runtime:    rt,
		debug:      debug,
		shutdownCh: make(chan struct{}),
	}
}

// Mode returns the transport mode.
func (*SSETransport) Mode() TransportType {
	return TransportTypeSSE
}

// Port returns the port used by the transport.
func (t *SSETransport) Port() int {
	return t.port
}

// Setup prepares the transport for use with a specific container.
func (t *SSETransport) Setup(
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

	// An SSE server must be reachable over the network regardless of the
	// profile's outbound rules.
	if permissionConfig.NetworkMode == container.NetworkModeNone {
		permissionConfig.NetworkMode = container.NetworkModeBridge
	}

	environment.SetTransportEnvironmentVariables(envVars, string(TransportTypeSSE), t.targetPort)

	// Expose the container port and bind it to loopback as a fallback
	// path in case the container IP cannot be resolved.
	containerPort := fmt.Sprintf("%d/tcp", t.targetPort)
	options := container.NewCreateContainerOptions()
	options.ExposedPorts[containerPort] = struct{}{}
	options.PortBindings[containerPort] = []container.PortBinding{
		{
			HostIP:   localhost,
			HostPort: fmt.Sprintf("%d", t.targetPort),
		},
	}

	containerID, err := t.runtime.CreateContainer(
		ctx, image, containerName, cmdArgs, envVars, labels, permissionConfig, options)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	t.containerID = containerID

	logger.Infof("Created container %s (%s)", containerName, containerID)

	return nil
}

// Start starts the container and the transparent proxy in front of it.
func (t *SSETransport) Start(ctx context.Context) error {
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

	// Resolve the container IP; fall back to the loopback port binding
	// when the runtime doesn't report one (e.g. rootless Podman).
	targetHost := "localhost"
	ip, err := t.runtime.GetContainerIP(ctx, t.containerID)
	if err != nil {
		logger.Warnf("Could not resolve container IP, falling back to %s: %v", targetHost, err)
	} else {
		t.containerIP = ip
		targetHost = ip
	}

	t.proxy = NewTransparentProxy(t.port, t.containerName, targetHost, t.targetPort)
	if err := t.proxy.Start(ctx); err != nil {
		return err
	}

	logger.Infof("SSE transport started for container %s on port %d", t.containerName, t.port)

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
func (t *SSETransport) Stop(ctx context.Context) error {
	select {
	case <-t.shutdownCh:
		return nil
	default:
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

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

	if t.proxy != nil {
		if err := t.proxy.Stop(ctx); err != nil {
			logger.Warnf("Failed to stop transparent proxy: %v", err)
		}
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
func (t *SSETransport) IsRunning(_ context.Context) (bool, error) {
	select {
	case <-t.shutdownCh:
		return false, nil
	default:
		return true, nil
	}
}

// handleContainerExit shuts the transport down when the monitor reports
// that the container exited.
func (t *SSETransport) handleContainerExit(ctx context.Context) {
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
