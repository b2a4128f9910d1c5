// Command mcp-tasks runs the task-management MCP server.
//
// It communicates over stdio using JSON-RPC 2.0 (MCP protocol); task records
// live in .mcp-tasks/ under the base directory. Logging goes to stderr
// because stdout carries the protocol.
//
// Optional environment variables:
//
//	MCP_TASKS_LOG_LEVEL - Log level: debug, info, warn, error (default: info)
//	MCP_TASKS_LOG_FILE  - Rotating log file instead of stderr
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-tasks: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts serveOptions

	root := &cobra.Command{
		Use:           "mcp-tasks",
		Short:         "Task-management MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.baseDir, "dir", "C", ".", "base directory of the tracked project")
	root.Flags().StringVar(&opts.httpAddr, "http", "", "serve Streamable HTTP on this address instead of stdio")
	root.Flags().StringVar(&opts.corsOrigins, "cors", "*", "allowed CORS origins for the HTTP transport")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &opts)
		},
	}
	serve.Flags().StringVar(&opts.httpAddr, "http", "", "serve Streamable HTTP on this address instead of stdio")
	serve.Flags().StringVar(&opts.corsOrigins, "cors", "*", "allowed CORS origins for the HTTP transport")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	})

	return root
}
