package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacklok/vibetool/pkg/container"
	"github.com/stacklok/vibetool/pkg/labels"
	"github.com/stacklok/vibetool/pkg/logger"
	"github.com/stacklok/vibetool/pkg/transport"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running MCP servers",
	Long:  `List all MCP servers managed by Vibe Tool, including their status and configuration.`,
	RunE:  listCmdFunc,
}

var (
	listAll  bool
	listJSON bool
)

// ContainerOutput represents container information for JSON output
type ContainerOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	State     string `json:"state"`
	Transport string `json:"transport"`
	Port      int    `json:"port"`
	URL       string `json:"url"`
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Show all containers (default shows just running)")
	listCmd.Flags().BoolVarP(&listJSON, "json", "j", false, "Output in JSON format")
}

func listCmdFunc(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtime, err := container.NewFactory().Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create container runtime: %w", err)
	}

	containers, err := runtime.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	// Only containers managed by Vibe Tool
	var owned []container.ContainerInfo
	for _, c := range containers {
		if labels.IsVibeToolContainer(c.Labels) {
			owned = append(owned, c)
		}
	}

	if !listAll {
		var running []container.ContainerInfo
		for _, c := range owned {
			if strings.Contains(c.State, "running") {
				running = append(running, c)
			}
		}
		owned = running
	}

	if len(owned) == 0 {
		fmt.Println("No MCP servers found")
		return nil
	}

	if listJSON {
		return printJSONOutput(owned)
	}
	printTextOutput(owned)
	return nil
}

// containerOutput builds the display record for one container.
func containerOutput(c container.ContainerInfo) ContainerOutput {
	// Truncate container ID to first 12 characters, like Docker does
	truncatedID := c.ID
	if len(truncatedID) > 12 {
		truncatedID = truncatedID[:12]
	}

	name := labels.GetContainerName(c.Labels)
	if name == "" {
		name = c.Name
	}

	transportType := labels.GetTransportType(c.Labels)
	if transportType == "" {
		transportType = "unknown"
	}

	port, err := labels.GetPort(c.Labels)
	if err != nil {
		port = 0
	}

	url := ""
	if port > 0 {
		url = fmt.Sprintf("http://localhost:%d%s", port, transport.HTTPSSEEndpoint)
	}

	return ContainerOutput{
		ID:        truncatedID,
		Name:      name,
		Image:     c.Image,
		State:     c.State,
		Transport: transportType,
		Port:      port,
		URL:       url,
	}
}

// printJSONOutput prints container information in JSON format
func printJSONOutput(containers []container.ContainerInfo) error {
	output := make([]ContainerOutput, 0, len(containers))
	for _, c := range containers {
		output = append(output, containerOutput(c))
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Println(string(jsonData))
	return nil
}

// printTextOutput prints container information in text format
func printTextOutput(containers []container.ContainerInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CONTAINER ID\tNAME\tIMAGE\tSTATE\tTRANSPORT\tPORT\tURL")

	for _, c := range containers {
		out := containerOutput(c)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			out.ID, out.Name, out.Image, out.State, out.Transport, out.Port, out.URL)
	}

	if err := w.Flush(); err != nil {
		logger.Warnf("Failed to flush tabwriter: %v", err)
	}
}
