package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/speckit/internal/wire"
)

// serveStdio is installed by main; it starts the real MCP server. Kept as a
// variable to avoid an import cycle between cli and server.
var serveStdio func() error

// SetServeFunc installs the MCP stdio entry point.
func SetServeFunc(fn func() error) {
	serveStdio = fn
}

// ServeCmd returns the MCP server command.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the command surface as MCP tools over stdio",
		Long: `Expose every speckit.* command as an MCP tool on the stdio transport.
Configure your MCP client to launch "speckit serve".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Hot-reload config for the lifetime of the server.
			watchCtx, stopWatch := context.WithCancel(NewContext())
			defer stopWatch()
			go wire.ConfigWatcher().Run(watchCtx)
			return serveStdio()
		},
	}
}
