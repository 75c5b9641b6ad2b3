package container

import (
	"github.com/stacklok/vibetool/pkg/errors"
	"github.com/stacklok/vibetool/pkg/permissions"
)

// Network modes compiled from a permission profile
const (
	// NetworkModeNone disables all container networking
	NetworkModeNone = "none"
	// NetworkModeBridge attaches the container to the default bridge network
	NetworkModeBridge = "bridge"
)

// NewPermissionConfigFromProfile compiles a permission profile into a
// container permission config. The compilation is pure: the same profile
// always yields the same config, and an invalid profile is rejected before
// anything is emitted.
func NewPermissionConfigFromProfile(profile *permissions.Profile) (*PermissionConfig, error) {
	if err := profile.Validate(); err != nil {
		return nil, errors.NewPermissions(err.Error(), err)
	}

	config := &PermissionConfig{
		Mounts:      []Mount{},
		NetworkMode: NetworkModeNone,
		CapDrop:     []string{"ALL"},
		CapAdd:      []string{"NET_BIND_SERVICE"},
		SecurityOpt: []string{"no-new-privileges"},
	}

	// Write mounts take precedence: a path listed in both read and write
	// is mounted read-write, once.
	written := make(map[string]bool, len(profile.Write))
	for _, path := range profile.Write {
		if written[path] {
			continue
		}
		written[path] = true
		config.Mounts = append(config.Mounts, Mount{
			Source:   path,
			Target:   path,
			ReadOnly: false,
		})
	}

	for _, path := range profile.Read {
		if written[path] {
			continue
		}
		written[path] = true
		config.Mounts = append(config.Mounts, Mount{
			Source:   path,
			Target:   path,
			ReadOnly: true,
		})
	}

	if profile.AllowsOutboundNetwork() {
		config.NetworkMode = NetworkModeBridge
	}

	return config, nil
}
