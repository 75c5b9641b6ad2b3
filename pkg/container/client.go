package container

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/stacklok/vibetool/pkg/labels"
	"github.com/stacklok/vibetool/pkg/logger"
)

// Common socket paths
const (
	// PodmanSocketPath is the default Podman socket path
	PodmanSocketPath = "/var/run/podman/podman.sock"
	// PodmanXDGRuntimeSocketPath is the XDG runtime Podman socket path
	PodmanXDGRuntimeSocketPath = "podman/podman.sock"
	// PodmanMachineSocketPath is the user-specific Podman machine socket path
	PodmanMachineSocketPath = ".local/share/containers/podman/machine/podman.sock"
	// DockerSocketPath is the default Docker socket path
	DockerSocketPath = "/var/run/docker.sock"
)

// stopTimeoutSeconds is how long the runtime waits for a container to stop
// before killing it.
const stopTimeoutSeconds = 30

// Client implements the Runtime interface for Docker and Podman
// over their Unix sockets. The two runtimes share the Docker API
// surface used here.
type Client struct {
	socketPath string
	client     *client.Client
}

// NewClient creates a new container client using the first container
// socket found on the system. Podman sockets are preferred over Docker.
// If the chosen runtime does not respond to a ping, the error is returned
// rather than falling back to another socket.
func NewClient(ctx context.Context) (*Client, error) {
	socketPath, err := findContainerSocket()
	if err != nil {
		return nil, err
	}

	return NewClientWithSocketPath(ctx, socketPath)
}

// NewClientWithSocketPath creates a new container client with a specific socket path
func NewClientWithSocketPath(ctx context.Context, socketPath string) (*Client, error) {
	// Create a custom HTTP client that dials the Unix socket
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
		Timeout: 120 * time.Second,
	}

	opts := []client.Opt{
		client.WithAPIVersionNegotiation(),
		client.WithHTTPClient(httpClient),
		client.WithHost("unix://" + socketPath),
	}

	dockerClient, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewContainerError(err, "", fmt.Sprintf("failed to create client: %v", err))
	}

	c := &Client{
		socketPath: socketPath,
		client:     dockerClient,
	}

	if _, err := c.client.Ping(ctx); err != nil {
		return nil, NewContainerError(ErrRuntimeNotFound, "",
			fmt.Sprintf("failed to ping container runtime at %s: %v", socketPath, err))
	}

	return c, nil
}

// findContainerSocket returns the first existing container socket,
// probing Podman locations before Docker.
func findContainerSocket() (string, error) {
	candidates := []string{PodmanSocketPath}

	if xdgRuntimeDir := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntimeDir != "" {
		candidates = append(candidates, filepath.Join(xdgRuntimeDir, PodmanXDGRuntimeSocketPath))
	}

	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, PodmanMachineSocketPath))
	}

	candidates = append(candidates, DockerSocketPath)

	for _, socketPath := range candidates {
		if _, err := os.Stat(socketPath); err == nil {
			logger.Debugf("Found container socket at %s", socketPath)
			return socketPath, nil
		}
	}

	return "", ErrRuntimeNotFound
}

// convertEnvVars converts a map of environment variables to a slice
func convertEnvVars(envVars map[string]string) []string {
	env := make([]string, 0, len(envVars))
	for k, v := range envVars {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// convertMounts converts internal mount format to Docker mount format
func convertMounts(mounts []Mount) []mount.Mount {
	result := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		result = append(result, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return result
}

// setupExposedPorts configures exposed ports for a container
func setupExposedPorts(config *container.Config, exposedPorts map[string]struct{}) error {
	if len(exposedPorts) == 0 {
		return nil
	}

	config.ExposedPorts = nat.PortSet{}
	for port := range exposedPorts {
		natPort, err := nat.NewPort("tcp", strings.Split(port, "/")[0])
		if err != nil {
			return fmt.Errorf("failed to parse port: %v", err)
		}
		config.ExposedPorts[natPort] = struct{}{}
	}

	return nil
}

// setupPortBindings configures port bindings for a container
func setupPortBindings(hostConfig *container.HostConfig, portBindings map[string][]PortBinding) error {
	if len(portBindings) == 0 {
		return nil
	}

	hostConfig.PortBindings = nat.PortMap{}
	for port, bindings := range portBindings {
		natPort, err := nat.NewPort("tcp", strings.Split(port, "/")[0])
		if err != nil {
			return fmt.Errorf("failed to parse port: %v", err)
		}

		natBindings := make([]nat.PortBinding, len(bindings))
		for i, binding := range bindings {
			natBindings[i] = nat.PortBinding{
				HostIP:   binding.HostIP,
				HostPort: binding.HostPort,
			}
		}
		hostConfig.PortBindings[natPort] = natBindings
	}

	return nil
}

// CreateContainer creates a container without starting it.
// If options is nil, default options will be used.
func (c *Client) CreateContainer(
	ctx context.Context,
	image, name string,
	command []string,
	envVars, labelsMap map[string]string,
	permissionConfig *PermissionConfig,
	options *CreateContainerOptions,
) (string, error) {
	attachStdio := options != nil && options.AttachStdio

	config := &container.Config{
		Image:        image,
		Cmd:          command,
		Env:          convertEnvVars(envVars),
		Labels:       labelsMap,
		AttachStdin:  attachStdio,
		AttachStdout: attachStdio,
		AttachStderr: attachStdio,
		OpenStdin:    attachStdio,
		Tty:          false,
	}

	hostConfig := &container.HostConfig{
		Mounts:      convertMounts(permissionConfig.Mounts),
		NetworkMode: container.NetworkMode(permissionConfig.NetworkMode),
		CapAdd:      permissionConfig.CapAdd,
		CapDrop:     permissionConfig.CapDrop,
		SecurityOpt: permissionConfig.SecurityOpt,
	}

	if options != nil {
		if err := setupExposedPorts(config, options.ExposedPorts); err != nil {
			return "", NewContainerError(err, "", err.Error())
		}

		if err := setupPortBindings(hostConfig, options.PortBindings); err != nil {
			return "", NewContainerError(err, "", err.Error())
		}
	}

	resp, err := c.client.ContainerCreate(
		ctx,
		config,
		hostConfig,
		&network.NetworkingConfig{},
		nil,
		name,
	)
	if err != nil {
		return "", NewContainerError(err, "", fmt.Sprintf("failed to create container: %v", err))
	}

	return resp.ID, nil
}

// StartContainer starts a container
func (c *Client) StartContainer(ctx context.Context, containerID string) error {
	err := c.client.ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewContainerError(ErrContainerNotFound, containerID, "container not found")
		}
		return NewContainerError(err, containerID, fmt.Sprintf("failed to start container: %v", err))
	}
	return nil
}

// ListContainers lists containers managed by vibetool
func (c *Client) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("label", labels.FormatVibeToolFilter())

	containers, err := c.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, NewContainerError(err, "", fmt.Sprintf("failed to list containers: %v", err))
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, ctr := range containers {
		// Names carry a leading slash in the Docker API
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}

		ports := make([]PortMapping, 0, len(ctr.Ports))
		for _, p := range ctr.Ports {
			ports = append(ports, PortMapping{
				ContainerPort: int(p.PrivatePort),
				HostPort:      int(p.PublicPort),
				Protocol:      p.Type,
			})
		}

		result = append(result, ContainerInfo{
			ID:      ctr.ID,
			Name:    name,
			Image:   ctr.Image,
			Status:  ctr.Status,
			State:   ctr.State,
			Created: time.Unix(ctr.Created, 0),
			Labels:  ctr.Labels,
			Ports:   ports,
		})
	}

	return result, nil
}

// StopContainer stops a container.
// If the container is already stopped or gone, it returns success.
func (c *Client) StopContainer(ctx context.Context, containerID string) error {
	running, err := c.IsContainerRunning(ctx, containerID)
	if err != nil {
		if IsContainerNotFound(err) {
			return nil
		}
		return err
	}

	if !running {
		return nil
	}

	timeoutSeconds := stopTimeoutSeconds
	err = c.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeoutSeconds})
	if err != nil {
		return NewContainerError(err, containerID, fmt.Sprintf("failed to stop container: %v", err))
	}
	return nil
}

// RemoveContainer removes a container.
// If the container doesn't exist, it returns success.
func (c *Client) RemoveContainer(ctx context.Context, containerID string) error {
	err := c.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return NewContainerError(err, containerID, fmt.Sprintf("failed to remove container: %v", err))
	}
	return nil
}

// ContainerLogs gets container logs
func (c *Client) ContainerLogs(ctx context.Context, containerID string) (string, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "100",
	}

	logs, err := c.client.ContainerLogs(ctx, containerID, options)
	if err != nil {
		return "", NewContainerError(err, containerID, fmt.Sprintf("failed to get container logs: %v", err))
	}
	defer logs.Close()

	logBytes, err := io.ReadAll(logs)
	if err != nil {
		return "", NewContainerError(err, containerID, fmt.Sprintf("failed to read container logs: %v", err))
	}

	return string(logBytes), nil
}

// IsContainerRunning checks if a container is running
func (c *Client) IsContainerRunning(ctx context.Context, containerID string) (bool, error) {
	info, err := c.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, NewContainerError(ErrContainerNotFound, containerID, "container not found")
		}
		return false, NewContainerError(err, containerID, fmt.Sprintf("failed to inspect container: %v", err))
	}

	return info.State.Running, nil
}

// GetContainerInfo gets container information
func (c *Client) GetContainerInfo(ctx context.Context, containerID string) (ContainerInfo, error) {
	info, err := c.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return ContainerInfo{}, NewContainerError(ErrContainerNotFound, containerID, "container not found")
		}
		return ContainerInfo{}, NewContainerError(err, containerID, fmt.Sprintf("failed to inspect container: %v", err))
	}

	ports := make([]PortMapping, 0)
	for containerPort, bindings := range info.NetworkSettings.Ports {
		for _, binding := range bindings {
			hostPort := 0
			if _, err := fmt.Sscanf(binding.HostPort, "%d", &hostPort); err != nil {
				logger.Warnf("Failed to parse host port %s: %v", binding.HostPort, err)
			}

			ports = append(ports, PortMapping{
				ContainerPort: containerPort.Int(),
				HostPort:      hostPort,
				Protocol:      containerPort.Proto(),
			})
		}
	}

	created, err := time.Parse(time.RFC3339, info.Created)
	if err != nil {
		created = time.Time{}
	}

	return ContainerInfo{
		ID:      info.ID,
		Name:    strings.TrimPrefix(info.Name, "/"),
		Image:   info.Config.Image,
		Status:  info.State.Status,
		State:   info.State.Status,
		Created: created,
		Labels:  info.Config.Labels,
		Ports:   ports,
	}, nil
}

// GetContainerIP gets container IP address
func (c *Client) GetContainerIP(ctx context.Context, containerID string) (string, error) {
	info, err := c.client.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", NewContainerError(ErrContainerNotFound, containerID, "container not found")
		}
		return "", NewContainerError(err, containerID, fmt.Sprintf("failed to inspect container: %v", err))
	}

	// Prefer the address of the first connected network
	for _, netSettings := range info.NetworkSettings.Networks {
		if netSettings.IPAddress != "" {
			return netSettings.IPAddress, nil
		}
	}

	return "", NewContainerError(
		fmt.Errorf("no IP address found"), containerID, "container has no IP address")
}

// AttachContainer attaches to a container's stdin and stdout.
// The runtime multiplexes stdout/stderr over the attach connection;
// the returned reader carries the demultiplexed stdout payload only.
func (c *Client) AttachContainer(ctx context.Context, containerID string) (io.WriteCloser, io.ReadCloser, error) {
	running, err := c.IsContainerRunning(ctx, containerID)
	if err != nil {
		return nil, nil, err
	}
	if !running {
		return nil, nil, NewContainerError(ErrContainerNotRunning, containerID, "container is not running")
	}

	resp, err := c.client.ContainerAttach(ctx, containerID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return nil, nil, NewContainerError(ErrAttachFailed, containerID,
			fmt.Sprintf("failed to attach to container: %v", err))
	}

	// Strip the stream-framing envelopes so callers see a clean byte stream.
	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, io.Discard, resp.Reader)
		pw.CloseWithError(err)
	}()

	return resp.Conn, pr, nil
}
