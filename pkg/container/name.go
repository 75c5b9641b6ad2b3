package container

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GetOrGenerateContainerName generates a container name if not provided.
// It returns both the container name and the base name.
// If containerName is not empty, it will be used as both the container name
// and base name. If containerName is empty, a name will be generated based
// on the image with a timestamp suffix for uniqueness.
func GetOrGenerateContainerName(containerName, image string) (string, string) {
	var baseName string

	if containerName == "" {
		baseName = generateContainerBaseName(image)
		containerName = appendTimestamp(baseName)
	} else {
		baseName = containerName
	}

	return containerName, baseName
}

// generateContainerBaseName generates a base name for a container from the image name
func generateContainerBaseName(image string) string {
	// Remove the tag, keep registry namespaces as dashes:
	// "quay.io/stacklok/mcp-server:v1" -> "quay.io-stacklok-mcp-server"
	imageWithoutTag := strings.Split(image, ":")[0]
	namespaceName := strings.ReplaceAll(imageWithoutTag, "/", "-")

	var sanitizedName strings.Builder
	for _, c := range namespaceName {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			sanitizedName.WriteRune(c)
		} else {
			sanitizedName.WriteRune('-')
		}
	}

	return sanitizedName.String()
}

// appendTimestamp appends a timestamp to a base name to ensure uniqueness
func appendTimestamp(baseName string) string {
	return fmt.Sprintf("%s-%d", baseName, time.Now().Unix())
}

// FindContainerByNameOrID resolves a user-supplied token against the owned
// containers. A token matches a container if it is a prefix of the container
// ID or equals the container name exactly. On multiple matches the first in
// enumeration order wins.
func FindContainerByNameOrID(ctx context.Context, rt Runtime, nameOrID string) (*ContainerInfo, error) {
	containers, err := rt.ListContainers(ctx)
	if err != nil {
		return nil, err
	}

	for i := range containers {
		c := &containers[i]
		if strings.HasPrefix(c.ID, nameOrID) || c.Name == nameOrID {
			return c, nil
		}
	}

	return nil, NewContainerError(ErrContainerNotFound, nameOrID, "container not found")
}
