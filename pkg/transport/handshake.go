package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/vibetool/pkg/logger"
)

const (
	// mcpProtocolVersion is the MCP protocol version spoken during the
	// synthesized handshake.
	mcpProtocolVersion = "2024-11-05"

	// clientName and clientVersion identify vibetool to the MCP server.
	clientName    = "vibetool"
	clientVersion = "0.1.0"

	// handshakeGap separates the initialize request from the initialized
	// notification so the single-writer drain preserves their order with
	// room for the server to process the first message.
	handshakeGap = 100 * time.Millisecond
)

// initializeParams is the payload of the synthesized initialize request.
type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      clientInfo         `json:"clientInfo"`
	Capabilities    clientCapabilities `json:"capabilities"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type clientCapabilities struct {
	Roots    rootsCapability `json:"roots"`
	Sampling struct{}        `json:"sampling"`
}

type rootsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// sendInitializeHandshake performs the MCP initialization on behalf of the
// managing process: an initialize request followed, after a short gap, by a
// notifications/initialized notification.
func sendInitializeHandshake(ctx context.Context, proxy Proxy) error {
	params, err := json.Marshal(initializeParams{
		ProtocolVersion: mcpProtocolVersion,
		ClientInfo: clientInfo{
			Name:    clientName,
			Version: clientVersion,
		},
		Capabilities: clientCapabilities{
			Roots: rootsCapability{ListChanged: true},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal initialize params: %w", err)
	}

	initRequest, err := jsonrpc2.NewCall(jsonrpc2.StringID("1"), "initialize", json.RawMessage(params))
	if err != nil {
		return fmt.Errorf("failed to create initialize request: %w", err)
	}

	if err := proxy.SendMessageToDestination(initRequest); err != nil {
		return fmt.Errorf("failed to send initialize request: %w", err)
	}

	logger.Debug("Sent initialize request to container")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(handshakeGap):
	}

	initNotification, err := jsonrpc2.NewNotification("notifications/initialized", nil)
	if err != nil {
		return fmt.Errorf("failed to create initialized notification: %w", err)
	}

	if err := proxy.SendMessageToDestination(initNotification); err != nil {
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	logger.Debug("Sent initialized notification to container")

	return nil
}
