package container

import (
	"context"
)

// Factory creates container runtimes
type Factory struct{}

// NewFactory creates a new container factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a container runtime by probing the known socket paths
func (*Factory) Create(ctx context.Context) (Runtime, error) {
	return NewClient(ctx)
}
