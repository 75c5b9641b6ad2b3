package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] IMAGE [-- ARGS...]",
	Short: "Run an MCP server in the foreground",
	Long: `Run an MCP server in a container with the specified image and arguments.
The container is started with minimal permissions and the specified transport
mode, and the command blocks until the container exits or a signal arrives.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCmdFunc,
}

var runOpts runFlags

func init() {
	addRunFlags(runCmd, &runOpts)
}

func runCmdFunc(cmd *cobra.Command, args []string) error {
	image := args[0]
	cmdArgs := args[1:]

	debug, _ := cmd.Flags().GetBool("debug")

	return runMCPServer(image, cmdArgs, &runOpts, debug)
}
