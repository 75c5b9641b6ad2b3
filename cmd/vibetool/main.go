// Package main provides the entry point for the vibetool command-line application.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/vibetool/pkg/logger"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "vibetool",
	Short: "Vibe Tool is a lightweight, secure, and fast manager for MCP servers",
	Long: `Vibe Tool is a lightweight, secure, and fast manager for MCP (Model Context Protocol) servers.

Under the hood, Vibe Tool acts as a very thin client for the Docker/Podman Unix socket API.
This design choice allows it to remain both efficient and lightweight while still providing powerful,
container-based isolation for running MCP servers.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		_ = cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of Vibe Tool",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Vibe Tool v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	// The logger reads the flag through viper
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
