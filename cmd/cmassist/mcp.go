package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/cmassist/internal/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so an assistant can call the
retrieve_knowledge, knowledge_status and ingest_path tools.

By default the server speaks JSON-RPC over stdio. Use --addr (or mcp.addr in
the config) to serve streamable HTTP instead.

Examples:
  cmassist mcp
  cmassist mcp --addr localhost:8090`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address (empty = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	srv, err := mcp.NewServer(components.Knowledge, components.Index.Store(), logger)
	if err != nil {
		return err
	}
	addr := mcpAddr
	if addr == "" {
		addr = cfg.MCP.Addr
	}
	if addr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", addr)
		return srv.RunHTTP(cmd.Context(), addr)
	}
	return srv.Run(cmd.Context())
}
