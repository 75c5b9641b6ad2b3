package container

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// monitorInterval is the polling cadence of the exit monitor.
const monitorInterval = 1 * time.Second

// Monitor watches a container's state and reports when it exits
type Monitor struct {
	runtime     Runtime
	containerID string
	name        string
	stopCh      chan struct{}
	errorCh     chan error
	wg          sync.WaitGroup
	running     bool
	mutex       sync.Mutex
}

// NewMonitor creates a new container monitor
func NewMonitor(rt Runtime, containerID, containerName string) *Monitor {
	return &Monitor{
		runtime:     rt,
		containerID: containerID,
		name:        containerName,
		stopCh:      make(chan struct{}),
		errorCh:     make(chan error, 1), // Buffered to prevent blocking
	}
}

// StartMonitoring starts monitoring the container.
// The returned channel receives at most one error: a ContainerExited
// error when the container transitions to a non-running state. The
// channel is closed when monitoring stops.
func (m *Monitor) StartMonitoring(ctx context.Context) (<-chan error, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running {
		return m.errorCh, nil // Already monitoring
	}

	running, err := m.runtime.IsContainerRunning(ctx, m.containerID)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, NewContainerError(ErrContainerNotRunning, m.containerID, "container is not running")
	}

	m.running = true
	m.wg.Add(1)
	go m.monitor(ctx)

	return m.errorCh, nil
}

// StopMonitoring stops monitoring the container
func (m *Monitor) StopMonitoring() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.running {
		return // Not monitoring
	}

	close(m.stopCh)
	m.wg.Wait()
	m.running = false
}

// monitor polls the container status until it exits or monitoring stops
func (m *Monitor) monitor(ctx context.Context) {
	defer m.wg.Done()
	defer close(m.errorCh)

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			running, err := m.runtime.IsContainerRunning(ctx, m.containerID)
			if err != nil {
				if IsContainerNotFound(err) {
					// The container has been removed out from under us
					m.errorCh <- NewContainerError(
						ErrContainerExited,
						m.containerID,
						fmt.Sprintf("Container %s not found, it may have been removed", m.name),
					)
					return
				}

				// Transient driver errors are not exits; keep polling
				continue
			}

			if !running {
				logs, _ := m.runtime.ContainerLogs(ctx, m.containerID)
				m.errorCh <- NewContainerError(
					ErrContainerExited,
					m.containerID,
					fmt.Sprintf("Container %s exited unexpectedly. Last logs:\n%s", m.name, logs),
				)
				return
			}
		}
	}
}
