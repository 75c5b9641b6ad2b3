// Package permissions provides utilities for managing container permissions
// and permission profiles for the vibetool application.
package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Profile represents a permission profile for a container
type Profile struct {
	// Read is a list of paths that the container can read from
	Read []string `json:"read,omitempty"`

	// Write is a list of paths that the container can write to
	Write []string `json:"write,omitempty"`

	// Network defines network permissions
	Network *NetworkPermissions `json:"network,omitempty"`
}

// NetworkPermissions defines network permissions for a container
type NetworkPermissions struct {
	// Outbound defines outbound network permissions
	Outbound *OutboundNetworkPermissions `json:"outbound,omitempty"`
}

// OutboundNetworkPermissions defines outbound network permissions
type OutboundNetworkPermissions struct {
	// InsecureAllowAll allows all outbound network connections
	InsecureAllowAll bool `json:"insecure_allow_all,omitempty"`

	// AllowTransport is a list of allowed transport protocols (tcp, udp)
	AllowTransport []string `json:"allow_transport,omitempty"`

	// AllowHost is a list of allowed hosts
	AllowHost []string `json:"allow_host,omitempty"`

	// AllowPort is a list of allowed ports
	AllowPort []int `json:"allow_port,omitempty"`
}

// BuiltinStdioProfile returns the built-in stdio profile:
// no filesystem access, no network access.
func BuiltinStdioProfile() *Profile {
	return &Profile{
		Read:  []string{},
		Write: []string{},
	}
}

// BuiltinNetworkProfile returns the built-in network profile:
// no filesystem access, unrestricted outbound network access.
func BuiltinNetworkProfile() *Profile {
	return &Profile{
		Read:  []string{},
		Write: []string{},
		Network: &NetworkPermissions{
			Outbound: &OutboundNetworkPermissions{
				InsecureAllowAll: true,
			},
		},
	}
}

// FromFile loads a permission profile from a file
func FromFile(path string) (*Profile, error) {
	// #nosec G304 - This is intentional as we're reading a user-specified permission profile
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read permission profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse permission profile: %w", err)
	}

	return &profile, nil
}

// Validate checks the semantic rules of the profile:
// every read/write path must be absolute, and insecure_allow_all
// cannot be combined with allow_transport/allow_host/allow_port.
func (p *Profile) Validate() error {
	for _, path := range p.Read {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("read path must be absolute: %s", path)
		}
	}

	for _, path := range p.Write {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("write path must be absolute: %s", path)
		}
	}

	if p.Network != nil && p.Network.Outbound != nil {
		outbound := p.Network.Outbound
		if outbound.InsecureAllowAll &&
			(len(outbound.AllowTransport) > 0 || len(outbound.AllowHost) > 0 || len(outbound.AllowPort) > 0) {
			return fmt.Errorf(
				"insecure_allow_all cannot be combined with allow_transport, allow_host, or allow_port")
		}
	}

	return nil
}

// AllowsOutboundNetwork reports whether the profile grants unrestricted
// outbound network access.
func (p *Profile) AllowsOutboundNetwork() bool {
	return p.Network != nil && p.Network.Outbound != nil && p.Network.Outbound.InsecureAllowAll
}
