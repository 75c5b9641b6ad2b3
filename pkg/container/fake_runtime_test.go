package container

import (
	"context"
	"io"
	"sync"
)

// fakeRuntime is an in-memory Runtime for tests.
type fakeRuntime struct {
	mutex      sync.Mutex
	containers []ContainerInfo
	logs       string

	stopped []string
	removed []string
}

func newFakeRuntime(containers ...ContainerInfo) *fakeRuntime {
	return &fakeRuntime{containers: containers}
}

func (f *fakeRuntime) find(containerID string) *ContainerInfo {
	for i := range f.containers {
		if f.containers[i].ID == containerID || f.containers[i].Name == containerID {
			return &f.containers[i]
		}
	}
	return nil
}

func (f *fakeRuntime) setState(containerID, state string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if c := f.find(containerID); c != nil {
		c.State = state
	}
}

func (f *fakeRuntime) remove(containerID string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for i := range f.containers {
		if f.containers[i].ID == containerID {
			f.containers = append(f.containers[:i], f.containers[i+1:]...)
			return
		}
	}
}

func (f *fakeRuntime) CreateContainer(
	_ context.Context,
	image, name string,
	_ []string,
	_, labels map[string]string,
	_ *PermissionConfig,
	_ *CreateContainerOptions,
) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	id := "fake-" + name
	f.containers = append(f.containers, ContainerInfo{
		ID:     id,
		Name:   name,
		Image:  image,
		State:  "created",
		Labels: labels,
	})
	return id, nil
}

func (f *fakeRuntime) StartContainer(_ context.Context, containerID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	c := f.find(containerID)
	if c == nil {
		return NewContainerError(ErrContainerNotFound, containerID, "container not found")
	}
	c.State = "running"
	return nil
}

func (f *fakeRuntime) ListContainers(_ context.Context) ([]ContainerInfo, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	result := make([]ContainerInfo, len(f.containers))
	copy(result, f.containers)
	return result, nil
}

func (f *fakeRuntime) StopContainer(_ context.Context, containerID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	c := f.find(containerID)
	if c == nil {
		return nil
	}
	c.State = "exited"
	f.stopped = append(f.stopped, c.ID)
	return nil
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, containerID string) error {
	f.mutex.Lock()
	f.removed = append(f.removed, containerID)
	f.mutex.Unlock()
	f.remove(containerID)
	return nil
}

func (f *fakeRuntime) ContainerLogs(_ context.Context, _ string) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.logs, nil
}

func (f *fakeRuntime) IsContainerRunning(_ context.Context, containerID string) (bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	c := f.find(containerID)
	if c == nil {
		return false, NewContainerError(ErrContainerNotFound, containerID, "container not found")
	}
	return c.State == "running", nil
}

func (f *fakeRuntime) GetContainerInfo(_ context.Context, containerID string) (ContainerInfo, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	c := f.find(containerID)
	if c == nil {
		return ContainerInfo{}, NewContainerError(ErrContainerNotFound, containerID, "container not found")
	}
	return *c, nil
}

func (f *fakeRuntime) GetContainerIP(_ context.Context, _ string) (string, error) {
	return "172.17.0.2", nil
}

func (f *fakeRuntime) AttachContainer(_ context.Context, containerID string) (io.WriteCloser, io.ReadCloser, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	c := f.find(containerID)
	if c == nil {
		return nil, nil, NewContainerError(ErrContainerNotFound, containerID, "container not found")
	}
	if c.State != "running" {
		return nil, nil, NewContainerError(ErrContainerNotRunning, containerID, "container is not running")
	}
	stdinReader, stdinWriter := io.Pipe()
	_ = stdinReader
	stdoutReader, _ := io.Pipe()
	return stdinWriter, stdoutReader, nil
}
