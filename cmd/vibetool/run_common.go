package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/environment"
	"github.com/stacklok/vibetool/pkg/labels"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/networking"
	"github.com/stacklok/vibetool/pkg/permissions"
	"github.com/stacklok/vibetool/pkg/process"
	"github.com/stacklok/vibetool/pkg/transport"
)

// detachedEnv marks a process re-executed by the start command.
const detachedEnv = "VIBETOOL_DETACHED"

// runFlags holds the flags shared by the run and start commands.
type runFlags struct {
	name              string
	transport         string
	port              int
	targetPort        int
	permissionProfile string
	env               []string
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVar(&flags.name, "name", "",
		"Name of the MCP server (auto-generated from image if not provided)")
	cmd.Flags().StringVar(&flags.transport, "transport", "stdio", "Transport mode (sse or stdio)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Port for the HTTP proxy to listen on (host port)")
	cmd.Flags().IntVar(&flags.targetPort, "target-port", 0,
		"Port for the container to expose (only applicable to SSE transport)")
	cmd.Flags().StringVar(&flags.permissionProfile, "permission-profile", "stdio",
		"Permission profile to use (stdio, network, or path to JSON file)")
	cmd.Flags().StringArrayVarP(&flags.env, "env", "e", []string{},
		"Environment variables to pass to the MCP server (format: KEY=VALUE)")
}

// loadPermissionProfile resolves the --permission-profile flag into a profile:
// one of the built-in names or a path to a JSON file.
func loadPermissionProfile(nameOrPath string) (*permissions.Profile, error) {
	switch nameOrPath {
	case "stdio":
		return permissions.BuiltinStdioProfile(), nil
	case "network":
		return permissions.BuiltinNetworkProfile(), nil
	default:
		return permissions.FromFile(nameOrPath)
	}
}

// getTargetPort selects the container port for the SSE transport. The stdio
// transport has no container port.
func getTargetPort(transportType transport.TransportType, requestedPort int) (int, error) {
	if transportType != transport.TransportTypeSSE {
		return 0, nil
	}

	targetPort, err := networking.FindOrUsePort(requestedPort)
	if err != nil {
		return 0, fmt.Errorf("target port error: %w", err)
	}
	logger.Infof("Using target port: %d", targetPort)
	return targetPort, nil
}

// runMCPServer launches an MCP server and blocks until it exits or the
// process receives SIGINT/SIGTERM.
func runMCPServer(image string, cmdArgs []string, flags *runFlags, debug bool) error {
	transportType, err := transport.ParseTransportType(flags.transport)
	if err != nil {
		return fmt.Errorf("invalid transport mode: %s. Valid modes are: sse, stdio", flags.transport)
	}

	// Select a host port for the HTTP proxy
	port, err := networking.FindOrUsePort(flags.port)
	if err != nil {
		return err
	}
	logger.Infof("Using host port: %d", port)

	targetPort, err := getTargetPort(transportType, flags.targetPort)
	if err != nil {
		return err
	}

	envVars, err := environment.ParseEnvironmentVariables(flags.env)
	if err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	permissionProfile, err := loadPermissionProfile(flags.permissionProfile)
	if err != nil {
		return fmt.Errorf("failed to load permission profile: %w", err)
	}

	containerName, baseName := container.GetOrGenerateContainerName(flags.name, image)

	containerLabels := make(map[string]string)
	labels.AddStandardLabels(containerLabels, containerName, baseName, string(transportType), port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := container.NewFactory().Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create container runtime: %w", err)
	}

	transportHandler, err := transport.NewFactory().Create(transport.Config{
		Type:       transportType,
		Port:       port,
		TargetPort: targetPort,
		Host:       "localhost",
		Runtime:    runtime,
		Debug:      debug,
	})
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	logger.Infof("Setting up %s transport...", transportType)
	if err := transportHandler.Setup(
		ctx, runtime, containerName, image, cmdArgs,
		envVars, containerLabels, permissionProfile,
	); err != nil {
		return fmt.Errorf("failed to set up transport: %w", err)
	}

	logger.Infof("Starting %s transport...", transportType)
	if err := transportHandler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	logger.Infof("MCP server %s started successfully", containerName)

	// A detached process records its PID so the stop command can kill it
	if os.Getenv(detachedEnv) == "1" {
		if err := process.WriteCurrentPIDFile(baseName); err != nil {
			logger.Warnf("Failed to write PID file: %v", err)
		}
		logger.Infof("Running as detached process (PID: %d)", os.Getpid())
	}

	stopMCPServer := func(reason string) {
		logger.Infof("Stopping MCP server: %s", reason)

		if err := transportHandler.Stop(ctx); err != nil {
			logger.Warnf("Failed to stop transport: %v", err)
		}

		if err := process.RemovePIDFile(baseName); err != nil {
			logger.Warnf("Failed to remove PID file: %v", err)
		}

		logger.Infof("MCP server %s stopped", containerName)
	}

	logger.Info("Press Ctrl+C to stop or wait for container to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The transport shuts itself down when the monitor reports an exit, so
	// the wait is on the signal or on the transport no longer running.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			stopMCPServer(fmt.Sprintf("received signal %s", sig))
			return nil
		case <-ticker.C:
			running, err := transportHandler.IsRunning(ctx)
			if err != nil {
				logger.Warnf("Failed to check transport state: %v", err)
				continue
			}
			if !running {
				if err := process.RemovePIDFile(baseName); err != nil {
					logger.Warnf("Failed to remove PID file: %v", err)
				}
				logger.Infof("MCP server %s stopped", containerName)
				return nil
			}
		}
	}
}
